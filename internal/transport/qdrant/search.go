package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/search/result"
	"github.com/kailas-cloud/skills-handbook/internal/metrics"
)

type searchRequest struct {
	Vector         []float32 `json:"vector"`
	Limit          int       `json:"limit"`
	ScoreThreshold float64   `json:"score_threshold"`
	WithPayload    bool      `json:"with_payload"`
}

// Search runs one similarity search. Hits come back in the index's order (score descending).
// Every failure wraps domain.ErrSearchFailed.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) ([]result.Result, error) {
	q = q.WithDefaults()

	if q.Endpoint == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, domain.ErrMissingCredentials)
	}
	if q.Collection == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, domain.ErrMissingCollection)
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrSearchFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, q.Timeout)
	defer cancel()

	target := Target{Endpoint: q.Endpoint, APIKey: q.APIKey}
	req := searchRequest{
		Vector:         q.Vector,
		Limit:          q.TopK,
		ScoreThreshold: q.ScoreThreshold,
		WithPayload:    true,
	}

	start := time.Now()
	var hits []result.Result
	err := c.do(ctx, OpSearch, target, http.MethodPost,
		target.url("collections", q.Collection, "points", "search"), req, &hits)
	if errors.Is(err, errNoResult) {
		// An index that omits the result list matched nothing.
		err = nil
	}
	metrics.SearchRequestDuration.WithLabelValues(q.Label).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(q.Label, "error").Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", q.Timeout, err)
		}
		c.logger.Debug("similarity search failed",
			zap.String("collection", q.Collection),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
	}

	metrics.SearchRequestsTotal.WithLabelValues(q.Label, "success").Inc()
	metrics.SearchHits.WithLabelValues(q.Label).Observe(float64(len(hits)))
	c.logger.Debug("similarity search done",
		zap.String("collection", q.Collection),
		zap.Int("hits", len(hits)),
		zap.Int("limit", q.TopK),
	)
	return hits, nil
}
