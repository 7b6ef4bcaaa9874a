package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/skills-handbook/internal/config"
	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/collection"
	"github.com/kailas-cloud/skills-handbook/internal/domain/hook"
	logpkg "github.com/kailas-cloud/skills-handbook/internal/logger"
	"github.com/kailas-cloud/skills-handbook/internal/metrics"
	"github.com/kailas-cloud/skills-handbook/internal/tracing"
	chiTransport "github.com/kailas-cloud/skills-handbook/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/skills-handbook/internal/transport/openai"
	"github.com/kailas-cloud/skills-handbook/internal/transport/qdrant"
	embeddinguc "github.com/kailas-cloud/skills-handbook/internal/usecase/embedding"
	handbookuc "github.com/kailas-cloud/skills-handbook/internal/usecase/handbook"
	healthuc "github.com/kailas-cloud/skills-handbook/internal/usecase/health"
	"github.com/kailas-cloud/skills-handbook/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(logpkg.Options{
		Env:     env,
		Level:   cfg.Logging.Level,
		Service: "skills-handbook",
		Version: version.Version,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting skills-handbook hook server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Bool("tracing", cfg.Tracing.Enabled),
	)

	metrics.Register()

	shutdownTracing, err := tracing.Init(context.Background(), tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     *cfg.Tracing.SampleRate,
		ServiceName:    "skills-handbook",
		ServiceVersion: version.Version,
	})
	if err != nil {
		logger.Fatal("Failed to init tracing", zap.Error(err))
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Timeout:    time.Duration(cfg.Embedding.TimeoutMs) * time.Millisecond,
		Logger:     logger,
	})
	embedder := buildEmbedder(base, cfg.Embedding, logger)

	index := qdrant.New(qdrant.WithLogger(logger))
	pipeline := handbookuc.New(embedder, index, hookDefaults(cfg), logger)

	// Probes run only for what the server itself is configured with.
	// Pass nil interfaces, not typed nil pointers.
	var vectorProbe, embeddingProbe healthuc.Checker
	if cfg.VectorIndex.Endpoint != "" {
		vectorProbe = index.Admin(qdrant.Target{Endpoint: cfg.VectorIndex.Endpoint, APIKey: cfg.VectorIndex.APIKey})
	}
	if cfg.Embedding.APIKey != "" {
		embeddingProbe = base
	}
	healthSvc := healthuc.New(vectorProbe, embeddingProbe)

	server := chiTransport.NewServer(pipeline, healthSvc, logger)
	router := chiTransport.NewRouter(server, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr), zap.String("hook_path", chiTransport.HookPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Error flushing traces", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Instrumented -> Instruction
func buildEmbedder(base domain.Embedder, cfg config.EmbeddingConfig, logger *zap.Logger) domain.Embedder {
	var embedder domain.Embedder = embeddinguc.NewInstrumentedEmbedder(base, cfg.Provider, cfg.Model, logger)

	if cfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}
	return embedder
}

// hookDefaults turns the server config into the fallbacks applied to every invocation.
func hookDefaults(cfg config.Config) hook.Defaults {
	d := hook.BuiltinDefaults()
	d.Credentials = hook.Credentials{
		Endpoint:     cfg.VectorIndex.Endpoint,
		APIKey:       cfg.VectorIndex.APIKey,
		OpenAIAPIKey: cfg.Embedding.APIKey,
	}
	d.Positive = collectionSpec(cfg.Handbook.Positive, collection.DefaultPositive())
	d.Negative = collectionSpec(cfg.Handbook.Negative, collection.DefaultNegative())
	d.IncludePositive = cfg.Handbook.Positive.IsEnabled()
	d.IncludeNegative = cfg.Handbook.Negative.IsEnabled()
	d.TopK = cfg.Handbook.TopK
	d.ScoreThreshold = *cfg.Handbook.ScoreThreshold
	d.Timeout = time.Duration(cfg.Handbook.TimeoutMs) * time.Millisecond
	return d
}

func collectionSpec(c config.CollectionConfig, fallback collection.Spec) collection.Spec {
	return collection.New(
		orDefault(c.Name, fallback.Name()),
		fallback.Label(),
		orDefault(c.Prefix, fallback.Prefix()),
		orDefault(c.Suffix, fallback.Suffix()),
	)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
