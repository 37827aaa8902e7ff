// Package telemetry provides application-level observability for the activity
// signup service: structured logging setup and Prometheus metrics.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started in cmd/server:
//
//	GET http://<host>:<SIGNUP_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router, so it never
// sits behind the public rate limiter.
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /activities/:name/signup)
// rather than the raw URL, because activity names in the path are caller supplied.
// The per-activity participant gauge is only ever labelled with names that exist
// in the registry.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method and route template (plus status code for the counter).
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "path"},
	)
)

// Outcome label values for the roster counters.
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
)

// Roster metrics.
//
// ActivitySignupsTotal and ActivityUnregistrationsTotal carry a single {outcome}
// label (success, not_found, conflict, invalid).
//
// Example PromQL queries:
//   - Rejected signups: sum(rate(activity_signups_total{outcome!="success"}[15m]))
//
// ActivityParticipants is the current roster size per activity. It is set at
// startup from the seed and after every successful signup or unregister.
//
// Example PromQL queries:
//   - Nearly full activities: activity_participants / on(activity) activity_capacity > 0.9
var (
	ActivitySignupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_signups_total",
			Help: "Total number of signup attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	ActivityUnregistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_unregistrations_total",
			Help: "Total number of unregister attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	ActivityParticipants = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "activity_participants",
			Help: "Current number of participants signed up, by activity.",
		},
		[]string{"activity"},
	)

	ActivityCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "activity_capacity",
			Help: "Maximum number of participants, by activity.",
		},
		[]string{"activity"},
	)
)

// RateLimitRejectionsTotal counts requests answered with 429, by limiter backend
// (memory or redis).
var RateLimitRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Total number of requests rejected by the rate limiter, by backend.",
	},
	[]string{"backend"},
)

// RecordRoster publishes the roster size and capacity of one activity.
func RecordRoster(activity string, participants, capacity int) {
	ActivityParticipants.WithLabelValues(activity).Set(float64(participants))
	ActivityCapacity.WithLabelValues(activity).Set(float64(capacity))
}
