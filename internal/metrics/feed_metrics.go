// Package metrics defines external feed metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Feed counter vectors
var (
	FeedRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_requests_total",
		Help:      "Total number of feed requests by feed and status",
	}, []string{"feed", "status"})

	FeedRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_retries_total",
		Help:      "Total number of retried feed attempts",
	}, []string{"feed"})

	FeedFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_failures_total",
		Help:      "Total number of feed calls that exhausted their retries",
	}, []string{"feed"})
)

// Feed gauges
var (
	FeedCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_cache_hit_ratio",
		Help:      "Feed response cache hit ratio",
	})

	CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "HTTP feed circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})
)

// RecordFeedRequest records one feed call outcome.
// status is "success", "failure" or "empty".
func RecordFeedRequest(feed, status string) {
	FeedRequestsTotal.WithLabelValues(feed, status).Inc()
}

// RecordFeedRetry records a retried attempt.
func RecordFeedRetry(feed string) {
	FeedRetriesTotal.WithLabelValues(feed).Inc()
}

// RecordFeedFailure records a feed call that gave up.
func RecordFeedFailure(feed string) {
	FeedFailuresTotal.WithLabelValues(feed).Inc()
}

// UpdateFeedCacheHitRatio updates the cache hit ratio gauge.
func UpdateFeedCacheHitRatio(ratio float64) {
	FeedCacheHitRatio.Set(ratio)
}

// UpdateCircuitBreakerState updates a breaker's state gauge.
func UpdateCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}
