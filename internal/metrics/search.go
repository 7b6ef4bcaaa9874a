package metrics

import "github.com/prometheus/client_golang/prometheus"

// Vector index metrics, labelled by collection role (positive, negative).
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Similarity searches by collection label and status",
		},
		[]string{"label", "status"},
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "request_duration_seconds",
			Help:      "Similarity search latency",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"label"},
	)

	SearchHits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "hits",
			Help:      "Hits returned per similarity search",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		},
		[]string{"label"},
	)
)
