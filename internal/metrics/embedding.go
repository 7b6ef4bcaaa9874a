package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding request statuses.
const (
	EmbeddingSuccess       = "success"
	EmbeddingAPIError      = "api_error"
	EmbeddingEmptyResponse = "empty_response"
)

// Embedding provider metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Embedding calls by provider, model and status",
		},
		[]string{"provider", "model", "status"},
	)

	// Observed for failed calls too.
	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "request_duration_seconds",
			Help:      "Embedding call latency",
			Buckets:   prometheus.ExponentialBuckets(0.025, 2, 10),
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "tokens_total",
			Help:      "Tokens billed by the embedding provider",
		},
		[]string{"provider", "model"},
	)
)
