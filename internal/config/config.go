package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds the skills-handbook service configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Handbook    HandbookConfig    `yaml:"handbook"`
	Tracing     TracingConfig     `yaml:"tracing"`
}

// TracingConfig holds OTLP trace export settings.
type TracingConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Endpoint   string   `yaml:"endpoint"` // host:port of the OTLP/gRPC collector
	Insecure   bool     `yaml:"insecure"`
	SampleRate *float64 `yaml:"sample_rate"` // default: 1
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EmbeddingConfig holds the OpenAI-compatible embedding provider settings.
// APIKey is only a fallback: hosts normally send credentials.openaiApiKey per call.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	TimeoutMs        int    `yaml:"timeout_ms"`
	QueryInstruction string `yaml:"query_instruction"`
}

// VectorIndexConfig holds Qdrant defaults used when the host sends no credentials.
type VectorIndexConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Distance string `yaml:"distance"`
}

// CollectionConfig describes one memory collection.
type CollectionConfig struct {
	Name    string `yaml:"name"`
	Prefix  string `yaml:"prefix"`
	Suffix  string `yaml:"suffix"`
	Enabled *bool  `yaml:"enabled"` // default: true
}

// HandbookConfig holds retrieval defaults.
type HandbookConfig struct {
	Positive       CollectionConfig `yaml:"positive"`
	Negative       CollectionConfig `yaml:"negative"`
	TopK           int              `yaml:"top_k"`
	ScoreThreshold *float64         `yaml:"score_threshold"` // 0 is a valid threshold
	TimeoutMs      int              `yaml:"timeout_ms"`
}

// Load reads config/<env>.yaml, or the file named by HANDBOOK_CONFIG when set.
func Load(env string) (Config, error) {
	path := os.Getenv("HANDBOOK_CONFIG")
	if path == "" {
		path = locate(env)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse substitutes ${VAR} references, decodes YAML, applies defaults and validates.
// Unknown keys are rejected so a misspelt option fails loudly.
func Parse(data []byte) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(substituteEnv(data)))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
// Collection names, prefixes and suffixes stay empty here; empty means "built-in default".
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.TimeoutMs <= 0 {
		c.Embedding.TimeoutMs = 10000
	}
	if c.VectorIndex.Distance == "" {
		c.VectorIndex.Distance = "Cosine"
	}
	if c.Handbook.TopK <= 0 {
		c.Handbook.TopK = 3
	}
	if c.Handbook.ScoreThreshold == nil {
		threshold := 0.7
		c.Handbook.ScoreThreshold = &threshold
	}
	if c.Handbook.TimeoutMs <= 0 {
		c.Handbook.TimeoutMs = 10000
	}
	if c.Tracing.SampleRate == nil {
		rate := 1.0
		c.Tracing.SampleRate = &rate
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if t := *c.Handbook.ScoreThreshold; t < 0 || t > 1 {
		return fmt.Errorf("handbook.score_threshold must be between 0 and 1, got %g", t)
	}
	if r := *c.Tracing.SampleRate; r < 0 || r > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1, got %g", r)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return errors.New("tracing.endpoint is required when tracing is enabled")
	}
	switch c.VectorIndex.Distance {
	case "Cosine", "Dot", "Euclid", "Manhattan":
		// ok
	default:
		return fmt.Errorf("vector_index.distance must be one of Cosine, Dot, Euclid, Manhattan, got %q",
			c.VectorIndex.Distance)
	}
	return nil
}

// IsEnabled reports whether the collection is queried by default.
func (c CollectionConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// locate returns the first existing <env>.yaml among ./config and the module's config dir.
func locate(env string) string {
	name := env + ".yaml"
	candidates := []string{filepath.Join("config", name)}
	if _, src, _, ok := runtime.Caller(0); ok {
		root := filepath.Dir(filepath.Dir(filepath.Dir(src))) // internal/config/config.go -> module root
		candidates = append(candidates, filepath.Join(root, "config", name))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return candidates[0]
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// substituteEnv replaces ${VAR} and ${VAR:-default}. An unset or empty VAR takes the default.
func substituteEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		m := envRef.FindSubmatch(ref)
		if v := os.Getenv(string(m[1])); v != "" {
			return []byte(v)
		}
		return m[3]
	})
}
