package qdrant

import (
	"context"
	"errors"
	"net/http"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
)

// Admin runs collection management calls against one fixed target.
type Admin struct {
	client *Client
	target Target
}

// Admin binds the management API to t.
func (c *Client) Admin(t Target) *Admin {
	return &Admin{client: c, target: t}
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type createCollectionRequest struct {
	Vectors vectorParams `json:"vectors"`
}

// CreateCollection creates a single-vector collection.
func (a *Admin) CreateCollection(ctx context.Context, name string, cfg domain.VectorConfig) error {
	distance := cfg.DistanceMetric
	if distance == "" {
		distance = domain.DefaultVectorConfig().DistanceMetric
	}
	req := createCollectionRequest{Vectors: vectorParams{Size: cfg.Dimensions, Distance: distance}}
	return a.client.do(ctx, OpCreateCollection, a.target, http.MethodPut, a.target.url("collections", name), req, nil)
}

// DeleteCollection drops a collection. A missing collection is not an error.
func (a *Admin) DeleteCollection(ctx context.Context, name string) error {
	err := a.client.do(ctx, OpDeleteCollection, a.target, http.MethodDelete, a.target.url("collections", name), nil, nil)
	if errors.Is(err, ErrCollectionNotFound) {
		return nil
	}
	return err
}

type upsertRequest struct {
	Points []domain.Point `json:"points"`
}

// Upsert writes points and waits until they are indexed.
func (a *Admin) Upsert(ctx context.Context, name string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	return a.client.do(ctx, OpUpsert, a.target, http.MethodPut,
		a.target.url("collections", name, "points")+"?wait=true", upsertRequest{Points: points}, nil)
}

type countRequest struct {
	Exact bool `json:"exact"`
}

// Count returns the exact number of points in a collection.
func (a *Admin) Count(ctx context.Context, name string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := a.client.do(ctx, OpCount, a.target, http.MethodPost,
		a.target.url("collections", name, "points", "count"), countRequest{Exact: true}, &out)
	if err != nil {
		return 0, err
	}
	return out.Count, nil
}

// HealthCheck pings /healthz. It satisfies the health checker contract.
func (a *Admin) HealthCheck(ctx context.Context) error {
	return a.client.do(ctx, OpHealthz, a.target, http.MethodGet, a.target.url("healthz"), nil, nil)
}
