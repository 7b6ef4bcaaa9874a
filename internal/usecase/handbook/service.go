// Package handbook runs the retrieval pipeline behind the before-request hook:
// extract the query, embed it, search the positive and negative collections,
// and splice the formatted memories into the outbound request.
package handbook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/chat"
	"github.com/kailas-cloud/skills-handbook/internal/domain/collection"
	"github.com/kailas-cloud/skills-handbook/internal/domain/hook"
	"github.com/kailas-cloud/skills-handbook/internal/domain/memory"
	"github.com/kailas-cloud/skills-handbook/internal/domain/search/result"
	"github.com/kailas-cloud/skills-handbook/internal/logger"
	"github.com/kailas-cloud/skills-handbook/internal/metrics"
)

var tracer = otel.Tracer("github.com/kailas-cloud/skills-handbook/internal/usecase/handbook")

// Service is the retrieval pipeline. It holds no per-request state.
type Service struct {
	embed    Embedder
	search   Searcher
	defaults hook.Defaults
	logger   *zap.Logger
}

// New creates the pipeline. defaults fill in whatever the host leaves out of the parameters.
func New(embed Embedder, search Searcher, defaults hook.Defaults, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{embed: embed, search: search, defaults: defaults, logger: log}
}

// collectionOutcome is the per-collection result after failures are collapsed.
type collectionOutcome struct {
	spec collection.Spec
	hits []result.Result
	err  error
}

// BeforeRequest runs the pipeline for one hook invocation.
// It never blocks the request: every failure is reported in the result and the verdict stays true.
func (s *Service) BeforeRequest(ctx context.Context, inv hook.Invocation) (res hook.Result) {
	start := time.Now()
	outcome := metrics.OutcomeSkipped
	defer func() {
		metrics.HookInvocationsTotal.WithLabelValues(outcome).Inc()
		metrics.HookDuration.Observe(time.Since(start).Seconds())
	}()

	log := logger.FromContext(ctx, s.logger)

	defer func() {
		if r := recover(); r != nil {
			log.Error("handbook pipeline panicked", zap.Any("panic", r), zap.Stack("stack"))
			outcome = metrics.OutcomeError
			res = hook.Fail(fmt.Errorf("internal error: %v", r), nil)
		}
	}()

	if inv.EventType != hook.BeforeRequest || !inv.Context.RequestType.IsSupported() {
		return hook.Allow(nil)
	}
	kind := inv.Context.RequestType
	ctx, log = logger.With(ctx, log, zap.String("request_type", string(kind)))

	ctx, span := tracer.Start(ctx, "handbook.BeforeRequest",
		trace.WithAttributes(attribute.String("handbook.request_type", string(kind))))
	defer span.End()

	fail := func(err error, data any) hook.Result {
		outcome = metrics.OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		return hook.Fail(err, data)
	}

	body, err := chat.ParseBody(inv.Context.Request.JSON)
	if err != nil {
		return fail(fmt.Errorf("read request body: %w", err), nil)
	}

	query, err := chat.Query(body, kind)
	if err != nil {
		return fail(fmt.Errorf("extract query: %w", err), nil)
	}
	if query == "" {
		outcome = metrics.OutcomeNoQuery
		log.Debug("no query text, skipping retrieval")
		return hook.Allow(nil)
	}

	params, err := inv.DecodeParameters()
	if err != nil {
		log.Warn("handbook parameters rejected", zap.Error(err))
		return fail(err, nil)
	}
	settings := params.Resolve(s.defaults)
	if err := settings.Validate(); err != nil {
		log.Warn("handbook not configured", zap.Error(err))
		return fail(err, nil)
	}
	if len(settings.Collections) == 0 {
		outcome = metrics.OutcomeUnchanged
		return hook.Allow(nil)
	}

	emb, err := s.embed.Embed(ctx, query, settings.Credentials.OpenAIAPIKey)
	if err != nil {
		log.Error("query embedding failed", zap.Error(err))
		return fail(fmt.Errorf("embed query: %w", err), nil)
	}

	outcomes := s.searchAll(ctx, settings, emb.Embedding)

	var (
		summary Summary
		blocks  strings.Builder
	)
	for _, o := range outcomes {
		if o.err != nil {
			log.Warn("collection search failed",
				zap.String("collection", o.spec.Name()),
				zap.String("label", string(o.spec.Label())),
				zap.Error(o.err),
			)
			summary.addFailure(o.spec.Label(), hook.NewError(o.err).Message)
			continue
		}
		if len(o.hits) == 0 {
			continue
		}
		summary.addHits(o.spec, o.hits)
		blocks.WriteString(memory.Format(o.hits, o.spec.Prefix(), o.spec.Suffix()))
	}

	block := blocks.String()
	if block == "" {
		outcome = metrics.OutcomeUnchanged
		log.Debug("no memories retrieved", zap.Int("collections", len(outcomes)))
		return hook.Allow(summary.data())
	}

	injected, err := chat.Inject(body, kind, block)
	if err != nil {
		return fail(fmt.Errorf("inject memories: %w", err), summary.data())
	}
	raw, err := injected.MarshalJSON()
	if err != nil {
		return fail(fmt.Errorf("encode request body: %w", err), summary.data())
	}

	s.recordInjected(&summary)
	span.SetAttributes(attribute.Int("handbook.block_bytes", len(block)))
	outcome = metrics.OutcomeTransformed

	log.Debug("memories injected",
		zap.Int("positive", countOf(summary.Positive)),
		zap.Int("negative", countOf(summary.Negative)),
		zap.Int("failures", len(summary.Failures)),
	)
	return hook.Transform(raw, summary.data())
}

// searchAll queries every enabled collection concurrently.
// Outcomes keep the order of settings.Collections.
func (s *Service) searchAll(ctx context.Context, settings hook.Settings, vector []float32) []collectionOutcome {
	outcomes := make([]collectionOutcome, len(settings.Collections))

	var g errgroup.Group
	for i, spec := range settings.Collections {
		g.Go(func() error {
			outcomes[i] = s.searchCollection(ctx, settings, spec, vector)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// searchCollection collapses every failure, including a panic, into the outcome.
func (s *Service) searchCollection(
	ctx context.Context, settings hook.Settings, spec collection.Spec, vector []float32,
) (out collectionOutcome) {
	out.spec = spec

	ctx, span := tracer.Start(ctx, "handbook.search",
		trace.WithAttributes(
			attribute.String("handbook.collection", spec.Name()),
			attribute.String("handbook.label", string(spec.Label())),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			out.hits = nil
			out.err = fmt.Errorf("%w: internal error: %v", domain.ErrSearchFailed, r)
		}
		if out.err != nil {
			span.RecordError(out.err)
			span.SetStatus(codes.Error, "search failed")
		}
	}()

	if err := spec.Validate(); err != nil {
		out.err = err
		return out
	}

	hits, err := s.search.Search(ctx, domain.SearchQuery{
		Endpoint:       settings.Credentials.Endpoint,
		APIKey:         settings.Credentials.APIKey,
		Collection:     spec.Name(),
		Label:          string(spec.Label()),
		Vector:         vector,
		TopK:           settings.TopK,
		ScoreThreshold: settings.ScoreThreshold,
		Timeout:        settings.Timeout,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrSearchFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
		}
		out.err = err
		return out
	}

	span.SetAttributes(attribute.Int("handbook.hits", len(hits)))
	out.hits = hits
	return out
}

func (s *Service) recordInjected(summary *Summary) {
	if summary.Positive != nil {
		metrics.MemoriesInjectedTotal.WithLabelValues(string(collection.Positive)).Add(float64(summary.Positive.Count))
	}
	if summary.Negative != nil {
		metrics.MemoriesInjectedTotal.WithLabelValues(string(collection.Negative)).Add(float64(summary.Negative.Count))
	}
}

func countOf(h *CollectionHits) int {
	if h == nil {
		return 0
	}
	return h.Count
}
