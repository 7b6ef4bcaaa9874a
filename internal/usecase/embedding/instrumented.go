package embedding

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/logger"
)

var tracer = otel.Tracer("github.com/kailas-cloud/skills-handbook/internal/usecase/embedding")

// InstrumentedEmbedder wraps Embedder with tracing, logging and per-request usage accounting.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, log *zap.Logger) *InstrumentedEmbedder {
	if log == nil {
		log = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   log,
	}
}

// Embed delegates to the inner embedder and adds the consumed tokens to the
// usage collector carried by ctx, if any.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text, apiKey string) (domain.EmbeddingResult, error) {
	ctx, span := tracer.Start(ctx, "embedding.Embed",
		trace.WithAttributes(
			attribute.String("embedding.provider", p.provider),
			attribute.String("embedding.model", p.model),
			attribute.Int("embedding.input_chars", len(text)),
		))
	defer span.End()

	log := logger.FromContext(ctx, p.logger)
	start := time.Now()

	result, err := p.inner.Embed(ctx, text, apiKey)

	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		log.Warn("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	domain.UsageFrom(ctx).Record(result.TotalTokens)
	span.SetAttributes(
		attribute.Int("embedding.dimensions", len(result.Embedding)),
		attribute.Int("embedding.total_tokens", result.TotalTokens),
	)

	log.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}
