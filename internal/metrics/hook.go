package metrics

import "github.com/prometheus/client_golang/prometheus"

// Hook outcomes.
const (
	OutcomeSkipped     = "skipped"
	OutcomeNoQuery     = "no_query"
	OutcomeError       = "error"
	OutcomeUnchanged   = "unchanged"
	OutcomeTransformed = "transformed"
)

// Hook pipeline metrics.
var (
	HookInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hook",
			Name:      "invocations_total",
			Help:      "Hook invocations by outcome",
		},
		[]string{"outcome"},
	)

	HookDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hook",
			Name:      "duration_seconds",
			Help:      "End-to-end hook pipeline latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)

	MemoriesInjectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hook",
			Name:      "memories_injected_total",
			Help:      "Retrieved memories injected into requests, by collection label",
		},
		[]string{"label"},
	)
)
