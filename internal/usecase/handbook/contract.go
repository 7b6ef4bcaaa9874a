package handbook

import (
	"context"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/search/result"
)

// Embedder vectorizes the query with the caller's embedding credential.
type Embedder interface {
	Embed(ctx context.Context, text, apiKey string) (domain.EmbeddingResult, error)
}

// Searcher runs one similarity search against a single collection.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]result.Result, error)
}
