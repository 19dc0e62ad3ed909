// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FollowToggles counts follow graph mutations by resulting action.
	FollowToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_follow_toggles_total",
		Help: "Total follow toggles by resulting action",
	}, []string{"action"})

	// LikeToggles counts like toggles by resulting action.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_like_toggles_total",
		Help: "Total like toggles by resulting action",
	}, []string{"action"})

	// GraphConsistencyWarnings counts follow asymmetries detected and repaired.
	GraphConsistencyWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulse_graph_consistency_warnings_total",
		Help: "Total follow graph asymmetries detected after a toggle",
	})

	// FeedPageSize records the number of posts returned per feed page.
	FeedPageSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulse_feed_page_size",
		Help:    "Number of posts returned per feed page",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
	})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulse_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// ToggleAction labels a toggle outcome.
func ToggleAction(on bool, onLabel, offLabel string) string {
	if on {
		return onLabel
	}
	return offLabel
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
