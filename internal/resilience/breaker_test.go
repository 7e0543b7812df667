package resilience_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-bidcalc/internal/resilience"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time           { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBreakerTransitions(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	breaker := resilience.NewBreaker(2, 0.5, 50*time.Millisecond).WithClock(clock.now)
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	require.Equal(t, resilience.Open, breaker.State())
	require.False(t, breaker.Allow(ctx), "breaker should open after threshold exceeded")

	clock.advance(60 * time.Millisecond)
	require.True(t, breaker.Allow(ctx), "breaker should move to half-open after cool off")
	require.Equal(t, resilience.HalfOpen, breaker.State())
	breaker.Report(ctx, true)
	require.Equal(t, resilience.Closed, breaker.State())
	require.True(t, breaker.Allow(ctx))
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	breaker := resilience.NewBreaker(1, 1, time.Second).WithClock(clock.now)
	ctx := context.Background()

	breaker.Report(ctx, false)
	require.False(t, breaker.Allow(ctx))

	clock.advance(time.Second)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.False(t, breaker.Allow(ctx))
}

func TestBreakerDo(t *testing.T) {
	breaker := resilience.NewBreaker(1, 1, time.Minute)
	ctx := context.Background()
	boom := errors.New("boom")

	require.ErrorIs(t, breaker.Do(ctx, func(context.Context) error { return boom }), boom)

	called := false
	err := breaker.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.False(t, called)
}

func TestNilBreakerAllows(t *testing.T) {
	var breaker *resilience.Breaker
	require.True(t, breaker.Allow(context.Background()))
	breaker.Report(context.Background(), false)
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestBreakerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	resilience.MustRegisterMetrics("bidcalc_test", reg)
	resilience.MustRegisterMetrics("bidcalc_test", reg)

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	breaker := resilience.NewBreaker(1, 0.5, time.Second).WithClock(clock.now).WithTarget("fee_rule_cache")
	ctx := context.Background()

	breaker.Report(ctx, false)
	clock.advance(time.Second)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, true)

	expected := `
# HELP bidcalc_test_breaker_transition_total Count of breaker state transitions
# TYPE bidcalc_test_breaker_transition_total counter
bidcalc_test_breaker_transition_total{from="closed",target="fee_rule_cache",to="open"} 1
bidcalc_test_breaker_transition_total{from="half_open",target="fee_rule_cache",to="closed"} 1
bidcalc_test_breaker_transition_total{from="open",target="fee_rule_cache",to="half_open"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bidcalc_test_breaker_transition_total"))
}

func TestBackoffWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, resilience.Backoff(base, 1, 0))
	require.Equal(t, base*4, resilience.Backoff(base, 3, 0))

	d := resilience.Backoff(base, 2, 0.2)
	require.GreaterOrEqual(t, d, base*2-(base*2/5))
	require.LessOrEqual(t, d, base*2+(base*2/5))
}

func TestRetry(t *testing.T) {
	attempts := 0
	err := resilience.Retry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)

	boom := errors.New("boom")
	attempts = 0
	err = resilience.Retry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		attempts++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, attempts)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	boom := errors.New("boom")
	err := resilience.Retry(ctx, 5, time.Hour, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, context.Canceled)
}
