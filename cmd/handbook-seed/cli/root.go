// Package cli implements the handbook-seed command line: it loads the example
// memories into Qdrant and runs ad-hoc queries the way the hook would.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/collection"
	logpkg "github.com/kailas-cloud/skills-handbook/internal/logger"
	openaiEmb "github.com/kailas-cloud/skills-handbook/internal/transport/openai"
	"github.com/kailas-cloud/skills-handbook/internal/transport/qdrant"
	embeddinguc "github.com/kailas-cloud/skills-handbook/internal/usecase/embedding"
	"github.com/kailas-cloud/skills-handbook/internal/usecase/seed"
	"github.com/kailas-cloud/skills-handbook/internal/version"
)

var (
	qdrantURL      string
	qdrantAPIKey   string
	openaiKey      string
	openaiBaseURL  string
	modelName      string
	dimensions     int
	distance       string
	positiveName   string
	negativeName   string
	timeoutSeconds int
	verbose        bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "handbook-seed",
	Short: "Seed and query the skills-handbook collections",
	Long: `handbook-seed creates the positive and negative example collections in Qdrant,
fills them with embedded examples and lets you preview what the hook would inject.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(seedCmd)
	RootCmd.AddCommand(queryCmd)

	defaults := domain.DefaultVectorConfig()
	flags := RootCmd.PersistentFlags()
	flags.StringVarP(&qdrantURL, "url", "u", envOr("QDRANT_URL", "http://localhost:6333"), "Qdrant URL")
	flags.StringVar(&qdrantAPIKey, "qdrant-api-key", os.Getenv("QDRANT_API_KEY"), "Qdrant API key")
	flags.StringVar(&openaiKey, "openai-key", os.Getenv("OPENAI_API_KEY"), "OpenAI API key (default $OPENAI_API_KEY)")
	flags.StringVar(&openaiBaseURL, "base-url", envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		"OpenAI-compatible API base URL")
	flags.StringVarP(&modelName, "model", "m", defaults.Model, "Embedding model")
	flags.IntVar(&dimensions, "dimensions", defaults.Dimensions, "Embedding dimensions")
	flags.StringVar(&distance, "distance", defaults.DistanceMetric, "Distance metric (Cosine, Dot, Euclid, Manhattan)")
	flags.StringVar(&positiveName, "positive", collection.DefaultPositiveName, "Positive collection name")
	flags.StringVar(&negativeName, "negative", collection.DefaultNegativeName, "Negative collection name")
	flags.IntVar(&timeoutSeconds, "timeout", 30, "Per-request timeout in seconds")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newService wires the seeding service from the persistent flags.
func newService() (*seed.Service, *zap.Logger, error) {
	if openaiKey == "" {
		return nil, nil, fmt.Errorf("%w: --openai-key or OPENAI_API_KEY is required", domain.ErrMissingCredentials)
	}
	if qdrantURL == "" {
		return nil, nil, fmt.Errorf("%w: --url is required", domain.ErrMissingCredentials)
	}

	level := "info"
	if verbose {
		level = "debug"
	}
	logger, err := logpkg.New(logpkg.Options{Env: "local", Level: level})
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	timeout := time.Duration(timeoutSeconds) * time.Second
	embedder := embeddinguc.NewInstrumentedEmbedder(
		openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     openaiKey,
			BaseURL:    openaiBaseURL,
			Model:      modelName,
			Dimensions: dimensions,
			Timeout:    timeout,
			Logger:     logger,
		}),
		"openai", modelName, logger,
	)

	client := qdrant.New(qdrant.WithLogger(logger))
	target := qdrant.Target{Endpoint: qdrantURL, APIKey: qdrantAPIKey}

	svc := seed.New(client.Admin(target), client, embedder, seed.Config{
		Endpoint:        qdrantURL,
		APIKey:          qdrantAPIKey,
		EmbeddingAPIKey: openaiKey,
		Vector: domain.VectorConfig{
			Model:          modelName,
			Dimensions:     dimensions,
			DistanceMetric: distance,
		},
		SearchTimeout: timeout,
	}, logger)
	return svc, logger, nil
}
