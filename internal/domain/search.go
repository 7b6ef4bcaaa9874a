package domain

import "time"

// Search defaults applied when the caller leaves a value unset.
const (
	DefaultTopK           = 3
	DefaultScoreThreshold = 0.7
	DefaultSearchTimeout  = 10 * time.Second
)

// UnlabelledSearch is the metrics label for searches without a collection role.
const UnlabelledSearch = "unlabelled"

// SearchQuery is one similarity search against a single collection of the vector index.
type SearchQuery struct {
	Endpoint       string
	APIKey         string
	Collection     string
	Vector         []float32
	TopK           int
	ScoreThreshold float64
	Timeout        time.Duration
	Label          string // collection role, used for metrics instead of the host-supplied name
}

// WithDefaults fills unset limits with the package defaults.
func (q SearchQuery) WithDefaults() SearchQuery {
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	if q.ScoreThreshold < 0 {
		q.ScoreThreshold = DefaultScoreThreshold
	}
	if q.Timeout <= 0 {
		q.Timeout = DefaultSearchTimeout
	}
	if q.Label == "" {
		q.Label = UnlabelledSearch
	}
	return q
}
