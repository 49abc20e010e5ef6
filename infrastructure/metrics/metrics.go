// Package metrics exposes Prometheus collectors for group post jobs and the Graph API client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "group_post_jobs_submitted_total",
			Help: "Total number of group post jobs accepted",
		},
	)

	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "group_post_jobs_finished_total",
			Help: "Total number of group post jobs by terminal status",
		},
		[]string{"status"},
	)

	JobsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "group_post_jobs_running",
			Help: "Number of group post jobs currently running on this instance",
		},
	)

	TargetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "group_post_targets_total",
			Help: "Total number of group post attempts by outcome",
		},
		[]string{"outcome"},
	)

	PointsRefundedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "group_post_points_refunded_total",
			Help: "Total number of points refunded to owners",
		},
	)

	SideEffectFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "group_post_side_effect_failures_total",
			Help: "Total number of swallowed bookkeeping failures by sink",
		},
		[]string{"sink"},
	)

	GraphRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graph_api_request_duration_seconds",
			Help:    "Duration of Graph API feed posts in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

func RecordTarget(success bool) {
	if success {
		TargetsTotal.WithLabelValues("success").Inc()
		return
	}
	TargetsTotal.WithLabelValues("failure").Inc()
}

func RecordGraphRequest(outcome string, d time.Duration) {
	GraphRequestDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func RecordSideEffectFailure(sink string) {
	SideEffectFailuresTotal.WithLabelValues(sink).Inc()
}
