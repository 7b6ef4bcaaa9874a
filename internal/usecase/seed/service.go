// Package seed loads the handbook collections and runs ad-hoc queries against them.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/collection"
	"github.com/kailas-cloud/skills-handbook/internal/domain/memory"
	"github.com/kailas-cloud/skills-handbook/internal/domain/search/result"
)

// Config holds the credentials and vector settings of one seeding run.
type Config struct {
	Endpoint        string
	APIKey          string
	EmbeddingAPIKey string
	Vector          domain.VectorConfig
	SearchTimeout   time.Duration
}

// Service seeds and queries collections.
type Service struct {
	index  Index
	search Searcher
	embed  Embedder
	cfg    Config
	logger *zap.Logger
}

// New creates a seeding service.
func New(index Index, search Searcher, embed Embedder, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Vector.Dimensions == 0 {
		cfg.Vector = domain.DefaultVectorConfig()
	}
	return &Service{index: index, search: search, embed: embed, cfg: cfg, logger: logger}
}

// CollectionReport describes one seeded collection.
type CollectionReport struct {
	Collection string
	Label      collection.Label
	Inserted   int
	Count      int
}

// Seed recreates both collections and fills them with the dataset.
// Existing collections with the same names are dropped first.
func (s *Service) Seed(ctx context.Context, positive, negative string, ds Dataset) ([]CollectionReport, error) {
	targets := []struct {
		name     string
		label    collection.Label
		examples []Example
	}{
		{positive, collection.Positive, ds.Positive},
		{negative, collection.Negative, ds.Negative},
	}

	reports := make([]CollectionReport, 0, len(targets))
	for _, t := range targets {
		if len(t.examples) == 0 {
			continue
		}
		if t.name == "" {
			return reports, fmt.Errorf("%s collection: %w", t.label, domain.ErrMissingCollection)
		}
		rep, err := s.seedCollection(ctx, t.name, t.examples)
		if err != nil {
			return reports, fmt.Errorf("seed %s collection %q: %w", t.label, t.name, err)
		}
		rep.Label = t.label
		reports = append(reports, rep)
	}
	return reports, nil
}

func (s *Service) seedCollection(ctx context.Context, name string, examples []Example) (CollectionReport, error) {
	if err := s.index.DeleteCollection(ctx, name); err != nil {
		return CollectionReport{}, fmt.Errorf("delete: %w", err)
	}
	if err := s.index.CreateCollection(ctx, name, s.cfg.Vector); err != nil {
		return CollectionReport{}, fmt.Errorf("create: %w", err)
	}
	s.logger.Info("collection created",
		zap.String("collection", name),
		zap.Int("dimensions", s.cfg.Vector.Dimensions),
		zap.String("distance", s.cfg.Vector.DistanceMetric),
	)

	points := make([]domain.Point, 0, len(examples))
	for _, e := range examples {
		emb, err := s.embed.Embed(ctx, e.Text, s.cfg.EmbeddingAPIKey)
		if err != nil {
			return CollectionReport{}, fmt.Errorf("embed example %d: %w", e.ID, err)
		}
		if len(emb.Embedding) != s.cfg.Vector.Dimensions {
			return CollectionReport{}, fmt.Errorf("example %d: embedding has %d dimensions, collection expects %d",
				e.ID, len(emb.Embedding), s.cfg.Vector.Dimensions)
		}
		points = append(points, e.point(emb.Embedding))
	}

	if err := s.index.Upsert(ctx, name, points); err != nil {
		return CollectionReport{}, fmt.Errorf("upsert: %w", err)
	}
	count, err := s.index.Count(ctx, name)
	if err != nil {
		return CollectionReport{}, fmt.Errorf("count: %w", err)
	}

	s.logger.Info("collection seeded", zap.String("collection", name), zap.Int("points", count))
	return CollectionReport{Collection: name, Inserted: len(points), Count: count}, nil
}

// QueryResult is what one collection returned for an ad-hoc query.
type QueryResult struct {
	Spec  collection.Spec
	Hits  []result.Result
	Block string
}

// Query embeds text once and searches every spec in order, rendering each
// collection's hits the way the hook would inject them.
func (s *Service) Query(
	ctx context.Context, text string, specs []collection.Spec, topK int, threshold float64,
) ([]QueryResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("query text is empty")
	}

	emb, err := s.embed.Embed(ctx, text, s.cfg.EmbeddingAPIKey)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	out := make([]QueryResult, 0, len(specs))
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return out, err
		}
		hits, err := s.search.Search(ctx, domain.SearchQuery{
			Endpoint:       s.cfg.Endpoint,
			APIKey:         s.cfg.APIKey,
			Collection:     spec.Name(),
			Label:          string(spec.Label()),
			Vector:         emb.Embedding,
			TopK:           topK,
			ScoreThreshold: threshold,
			Timeout:        s.cfg.SearchTimeout,
		})
		if err != nil {
			return out, fmt.Errorf("search %s: %w", spec.Name(), err)
		}
		out = append(out, QueryResult{
			Spec:  spec,
			Hits:  hits,
			Block: memory.Format(hits, spec.Prefix(), spec.Suffix()),
		})
	}
	return out, nil
}
