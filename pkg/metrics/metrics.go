package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editor_http_requests_total",
			Help: "Total number of HTTP requests served by the profile editor",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "editor_http_request_duration_seconds",
			Help:    "Duration of HTTP requests served by the profile editor in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "editor_upstream_request_duration_seconds",
			Help:    "Duration of calls to the profile API in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "outcome"},
	)

	// Outcome is one of "success" or "failure".
	ProfileLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editor_profile_loads_total",
			Help: "Profile loads by outcome",
		},
		[]string{"outcome"},
	)

	SubmitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editor_submits_total",
			Help: "Profile submits by outcome",
		},
		[]string{"outcome"},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editor_exports_total",
			Help: "Profile exports by outcome",
		},
		[]string{"outcome"},
	)

	ValidationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "editor_validation_failures_total",
			Help: "Submits blocked by field validation",
		},
	)

	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "editor_live_sessions",
			Help: "Editor sessions held in memory",
		},
	)
)

func Outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
