// Package observability owns the Prometheus collectors and the OpenTelemetry tracer.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VotesTotal counts vote requests by direction and outcome.
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_votes_total",
		Help: "Total vote requests by direction and result",
	}, []string{"direction", "result"})

	// AuthFailuresTotal counts rejected logins and bearer tokens by reason.
	AuthFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_auth_failures_total",
		Help: "Total authentication failures by reason",
	}, []string{"reason"})

	// PostsTotal counts committed post mutations by operation.
	PostsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_posts_total",
		Help: "Total post mutations by operation",
	}, []string{"operation"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chirp_database_query_duration_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FeedConnections is the gauge of open live feed websockets.
	FeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chirp_feed_connections",
		Help: "Number of open live feed WebSocket connections",
	})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// RecordVote increments the vote counter.
func RecordVote(direction, result string) {
	VotesTotal.WithLabelValues(direction, result).Inc()
}

// RecordAuthFailure increments the auth failure counter.
func RecordAuthFailure(reason string) {
	AuthFailuresTotal.WithLabelValues(reason).Inc()
}
