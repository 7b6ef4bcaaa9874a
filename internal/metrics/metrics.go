// Package metrics holds the Prometheus collectors of the hook server.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "handbook"

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsInFlight,
			httpRequestDuration,
			httpResponseSize,
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			SearchRequestsTotal,
			SearchRequestDuration,
			SearchHits,
			HookInvocationsTotal,
			HookDuration,
			MemoriesInjectedTotal,
		)
	})
}
