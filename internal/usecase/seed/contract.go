package seed

import (
	"context"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/search/result"
)

// Index manages collections on one vector index deployment.
type Index interface {
	DeleteCollection(ctx context.Context, name string) error
	CreateCollection(ctx context.Context, name string, cfg domain.VectorConfig) error
	Upsert(ctx context.Context, name string, points []domain.Point) error
	Count(ctx context.Context, name string) (int, error)
}

// Searcher runs one similarity search.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]result.Result, error)
}

// Embedder vectorizes text.
type Embedder interface {
	Embed(ctx context.Context, text, apiKey string) (domain.EmbeddingResult, error)
}
