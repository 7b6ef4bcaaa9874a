package hook

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/collection"
)

// Credentials for the external services, supplied by the host per invocation.
type Credentials struct {
	Endpoint     string `json:"endpoint"`
	APIKey       string `json:"apiKey"`
	OpenAIAPIKey string `json:"openaiApiKey"`
}

// Parameters are the plugin options as the host sends them.
// Pointer fields distinguish "absent" from an explicit zero value.
type Parameters struct {
	Credentials            Credentials `json:"credentials"`
	PositiveCollectionName *string     `json:"positiveCollectionName"`
	NegativeCollectionName *string     `json:"negativeCollectionName"`
	TopK                   *int        `json:"topK"`
	ScoreThreshold         *float64    `json:"scoreThreshold"`
	IncludePositive        *bool       `json:"includePositive"`
	IncludeNegative        *bool       `json:"includeNegative"`
	PositivePrefix         *string     `json:"positivePrefix"`
	PositiveSuffix         *string     `json:"positiveSuffix"`
	NegativePrefix         *string     `json:"negativePrefix"`
	NegativeSuffix         *string     `json:"negativeSuffix"`
	Timeout                *int        `json:"timeout"` // milliseconds
}

// Defaults are the server-side fallbacks for anything the host leaves out.
type Defaults struct {
	Credentials     Credentials
	Positive        collection.Spec
	Negative        collection.Spec
	IncludePositive bool
	IncludeNegative bool
	TopK            int
	ScoreThreshold  float64
	Timeout         time.Duration
}

// BuiltinDefaults returns the defaults used when the server config sets nothing.
func BuiltinDefaults() Defaults {
	return Defaults{
		Positive:        collection.DefaultPositive(),
		Negative:        collection.DefaultNegative(),
		IncludePositive: true,
		IncludeNegative: true,
		TopK:            domain.DefaultTopK,
		ScoreThreshold:  domain.DefaultScoreThreshold,
		Timeout:         domain.DefaultSearchTimeout,
	}
}

// Settings are the resolved options for one invocation.
type Settings struct {
	Credentials    Credentials
	Collections    []collection.Spec // enabled collections, positive first
	TopK           int
	ScoreThreshold float64
	Timeout        time.Duration
}

// Resolve merges parameters over defaults.
func (p Parameters) Resolve(d Defaults) Settings {
	s := Settings{
		Credentials:    d.Credentials,
		TopK:           d.TopK,
		ScoreThreshold: d.ScoreThreshold,
		Timeout:        d.Timeout,
	}
	if p.Credentials.Endpoint != "" && !sameEndpoint(p.Credentials.Endpoint, d.Credentials.Endpoint) {
		// The server's index key only ever goes to the server's index.
		s.Credentials.Endpoint = p.Credentials.Endpoint
		s.Credentials.APIKey = ""
	}
	if p.Credentials.APIKey != "" {
		s.Credentials.APIKey = p.Credentials.APIKey
	}
	if p.Credentials.OpenAIAPIKey != "" {
		s.Credentials.OpenAIAPIKey = p.Credentials.OpenAIAPIKey
	}
	if p.TopK != nil && *p.TopK > 0 {
		s.TopK = *p.TopK
	}
	if p.ScoreThreshold != nil && *p.ScoreThreshold >= 0 {
		s.ScoreThreshold = *p.ScoreThreshold
	}
	if p.Timeout != nil && *p.Timeout > 0 {
		s.Timeout = time.Duration(*p.Timeout) * time.Millisecond
	}

	if boolOr(p.IncludePositive, d.IncludePositive) {
		s.Collections = append(s.Collections, collection.New(
			stringOr(p.PositiveCollectionName, d.Positive.Name()),
			collection.Positive,
			stringOr(p.PositivePrefix, d.Positive.Prefix()),
			stringOr(p.PositiveSuffix, d.Positive.Suffix()),
		))
	}
	if boolOr(p.IncludeNegative, d.IncludeNegative) {
		s.Collections = append(s.Collections, collection.New(
			stringOr(p.NegativeCollectionName, d.Negative.Name()),
			collection.Negative,
			stringOr(p.NegativePrefix, d.Negative.Prefix()),
			stringOr(p.NegativeSuffix, d.Negative.Suffix()),
		))
	}
	return s
}

// Validate checks the credentials every retrieval needs.
func (s Settings) Validate() error {
	if s.Credentials.Endpoint == "" {
		return fmt.Errorf("%w: credentials.endpoint (vector index URL) is required", domain.ErrMissingCredentials)
	}
	if s.Credentials.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: credentials.openaiApiKey (embedding API key) is required", domain.ErrMissingCredentials)
	}
	return nil
}

func sameEndpoint(a, b string) bool {
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}

func stringOr(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}
