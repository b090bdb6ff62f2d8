// Package metrics exposes the Prometheus collectors for the map backend.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Live updates
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pigmap_ws_active_sessions",
			Help: "Current number of connected live-update sessions",
		},
	)

	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pigmap_ws_broadcasts_total",
			Help: "Total number of events broadcast to all sessions",
		},
		[]string{"type"},
	)

	DroppedSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pigmap_ws_dropped_sessions_total",
			Help: "Sessions removed because a send to them failed",
		},
		[]string{"reason"}, // "buffer_full", "write_error"
	)

	// Rate limiting
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pigmap_rate_limit_decisions_total",
			Help: "Rate limiter outcomes per endpoint class",
		},
		[]string{"endpoint", "decision"}, // "allow", "reject", "error"
	)

	// Moderation and lifecycle
	MarkersHidden = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pigmap_markers_hidden_total",
			Help: "Markers hidden by accumulated reports",
		},
	)

	MarkersArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pigmap_markers_archived_total",
			Help: "Markers archived by the expiry sweep",
		},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pigmap_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status_code"},
	)
)

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

func RecordRateLimit(endpoint, decision string) {
	RateLimitDecisions.WithLabelValues(endpoint, decision).Inc()
}

func RecordBroadcast(eventType string) {
	BroadcastsTotal.WithLabelValues(eventType).Inc()
}

func RecordDroppedSession(reason string) {
	DroppedSessions.WithLabelValues(reason).Inc()
}
