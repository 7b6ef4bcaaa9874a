package collection

import (
	"fmt"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
)

// Label says how a collection's hits are meant to be read by the model.
type Label string

const (
	// Positive collections hold practices to follow.
	Positive Label = "positive"
	// Negative collections hold practices to avoid.
	Negative Label = "negative"
)

// IsValid checks if the label is supported.
func (l Label) IsValid() bool {
	return l == Positive || l == Negative
}

// Default collection names, matching the seeding tool.
const (
	DefaultPositiveName = "skills-handbook-positive"
	DefaultNegativeName = "skills-handbook-negative"
)

// Default wrappers for rendered memory blocks.
const (
	DefaultPositivePrefix = "\n\n<positive_examples>\nHere are relevant examples of good practices to follow:\n"
	DefaultPositiveSuffix = "</positive_examples>\n"
	DefaultNegativePrefix = "\n\n<negative_examples>\nHere are relevant examples of practices to avoid:\n"
	DefaultNegativeSuffix = "</negative_examples>\n"
)

// Spec describes one queried collection and how its hits are wrapped (immutable value object).
type Spec struct {
	name   string
	label  Label
	prefix string
	suffix string
}

// New creates a collection spec.
func New(name string, label Label, prefix, suffix string) Spec {
	return Spec{name: name, label: label, prefix: prefix, suffix: suffix}
}

// DefaultPositive returns the built-in positive collection spec.
func DefaultPositive() Spec {
	return New(DefaultPositiveName, Positive, DefaultPositivePrefix, DefaultPositiveSuffix)
}

// DefaultNegative returns the built-in negative collection spec.
func DefaultNegative() Spec {
	return New(DefaultNegativeName, Negative, DefaultNegativePrefix, DefaultNegativeSuffix)
}

// Name returns the collection name in the vector index.
func (s Spec) Name() string { return s.name }

// Label returns the collection label.
func (s Spec) Label() Label { return s.label }

// Prefix returns the text emitted before the rendered hits.
func (s Spec) Prefix() string { return s.prefix }

// Suffix returns the text emitted after the rendered hits.
func (s Spec) Suffix() string { return s.suffix }

// Validate checks that the spec can be queried.
func (s Spec) Validate() error {
	if !s.label.IsValid() {
		return fmt.Errorf("unknown collection label %q", s.label)
	}
	if s.name == "" {
		return fmt.Errorf("%s collection: %w", s.label, domain.ErrMissingCollection)
	}
	return nil
}
