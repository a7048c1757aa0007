package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the application-specific Prometheus collectors.
var Registry = prometheus.NewRegistry()

var (
	SessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dogemint",
			Subsystem: "mint",
			Name:      "sessions_started_total",
			Help:      "Total number of mint sessions started.",
		},
	)

	SessionsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dogemint",
			Subsystem: "mint",
			Name:      "sessions_completed_total",
			Help:      "Total number of mint sessions reaching a terminal state.",
		},
		[]string{"status"},
	)

	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dogemint",
			Subsystem: "mint",
			Name:      "step_duration_seconds",
			Help:      "Duration of background step executions.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
		[]string{"step", "outcome"},
	)

	SupplyRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dogemint",
			Subsystem: "mint",
			Name:      "supply_remaining",
			Help:      "Token ids still available for allocation.",
		},
	)

	SessionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dogemint",
			Subsystem: "mint",
			Name:      "sessions_expired_total",
			Help:      "Sessions marked FAILED(expired) by read path or sweep.",
		},
	)
)

func init() {
	Registry.MustRegister(
		SessionsStarted,
		SessionsCompleted,
		StepDuration,
		SupplyRemaining,
		SessionsExpired,
	)
}
