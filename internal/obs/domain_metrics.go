package obs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainMu sync.RWMutex

	// BidCalculationsTotal counts bid calculations by vehicle type and outcome.
	BidCalculationsTotal *prometheus.CounterVec
	// FeeRuleLookupDuration records fee rule lookup latency in milliseconds.
	FeeRuleLookupDuration *prometheus.HistogramVec
	// FeeRuleCacheTotal counts fee rule cache hits, misses and errors.
	FeeRuleCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers bid calculator collectors.
// Calling it again with the same registerer is a no-op.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	calculations := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bid_calculations_total",
		Help:      "Count of bid calculations by vehicle type and result.",
	}, []string{"vehicle_type", "result"}))
	lookups := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fee_rule_lookup_duration_ms",
		Help:      "Latency of fee rule lookups in milliseconds.",
		Buckets:   defaultLatencyBuckets,
	}, []string{"result"}))
	cache := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fee_rule_cache_total",
		Help:      "Count of fee rule cache lookups by result.",
	}, []string{"result"}))

	domainMu.Lock()
	BidCalculationsTotal = calculations
	FeeRuleLookupDuration = lookups
	FeeRuleCacheTotal = cache
	domainMu.Unlock()
}

// ObserveCalculation increments the calculation counter when domain metrics are registered.
func ObserveCalculation(vehicleType, result string) {
	domainMu.RLock()
	c := BidCalculationsTotal
	domainMu.RUnlock()
	if c == nil {
		return
	}
	if vehicleType == "" {
		vehicleType = "unknown"
	}
	c.WithLabelValues(vehicleType, result).Inc()
}

// ObserveRuleLookup records the duration of a fee rule lookup.
func ObserveRuleLookup(result string, d time.Duration) {
	domainMu.RLock()
	h := FeeRuleLookupDuration
	domainMu.RUnlock()
	if h == nil {
		return
	}
	h.WithLabelValues(result).Observe(DurationMillis(d))
}

// ObserveRuleCache counts a fee rule cache outcome such as hit or miss.
func ObserveRuleCache(result string) {
	domainMu.RLock()
	c := FeeRuleCacheTotal
	domainMu.RUnlock()
	if c == nil {
		return
	}
	c.WithLabelValues(result).Inc()
}
