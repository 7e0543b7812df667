package feestore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-bidcalc/internal/fees"
	"github.com/noah-isme/backend-bidcalc/internal/obs"
	"github.com/noah-isme/backend-bidcalc/internal/resilience"
)

const cacheKeyPrefix = "bidcalc:fee-rules:"

// Cache stores JSON payloads in Redis with a fixed TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client or non-positive TTL disables it.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// CachedStore is a read-through cache in front of another Store. Cache failures
// never fail a lookup; they are passed to OnError and the underlying store is used.
// While Breaker is open the cache is skipped entirely.
type CachedStore struct {
	Next    Store
	Cache   *Cache
	Breaker *resilience.Breaker
	OnError func(error)
}

// RulesForVehicleType implements Store.
func (s CachedStore) RulesForVehicleType(ctx context.Context, vt fees.VehicleType) ([]fees.Rule, error) {
	if !s.Cache.enabled() {
		return s.Next.RulesForVehicleType(ctx, vt)
	}
	if !s.Breaker.Allow(ctx) {
		obs.ObserveRuleCache("bypass")
		return s.Next.RulesForVehicleType(ctx, vt)
	}
	key := cacheKeyPrefix + vt.Code()

	var cached []fees.Rule
	hit, err := s.Cache.GetJSON(ctx, key, &cached)
	s.Breaker.Report(ctx, err == nil)
	switch {
	case err != nil:
		obs.ObserveRuleCache("error")
		s.report(err)
	case hit && len(cached) > 0:
		obs.ObserveRuleCache("hit")
		return cached, nil
	default:
		obs.ObserveRuleCache("miss")
	}

	rules, err := s.Next.RulesForVehicleType(ctx, vt)
	if err != nil {
		return nil, err
	}
	if s.Breaker.State() == resilience.Closed {
		if err := s.Cache.SetJSON(ctx, key, rules); err != nil {
			s.report(err)
		}
	}
	return rules, nil
}

func (s CachedStore) report(err error) {
	if s.OnError != nil && err != nil {
		s.OnError(err)
	}
}
