package seed

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
	"github.com/kailas-cloud/skills-handbook/internal/domain/search/result"
)

//go:embed examples.yaml
var builtinExamples []byte

// Example is one memory to store.
type Example struct {
	ID        uint64 `yaml:"id"`
	Text      string `yaml:"text"`
	Tool      string `yaml:"tool"`
	Reasoning string `yaml:"reasoning"`
}

// payload mirrors the text into "example" so both lookup paths of the formatter hit.
func (e Example) payload() result.Payload {
	fields := []result.Field{result.StringField("text", e.Text)}
	if e.Tool != "" {
		fields = append(fields, result.StringField("tool", e.Tool))
	}
	if e.Reasoning != "" {
		fields = append(fields, result.StringField("reasoning", e.Reasoning))
	}
	fields = append(fields, result.StringField("example", e.Text))
	return result.StructuredPayload(fields...)
}

func (e Example) point(vector []float32) domain.Point {
	return domain.Point{ID: result.NumericID(e.ID), Vector: vector, Payload: e.payload()}
}

// Dataset is the content of both collections.
type Dataset struct {
	Positive []Example `yaml:"positive"`
	Negative []Example `yaml:"negative"`
}

// ParseDataset decodes and validates a YAML dataset.
func ParseDataset(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parse dataset: %w", err)
	}
	if err := ds.validate(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// DefaultDataset returns the built-in examples.
func DefaultDataset() Dataset {
	ds, err := ParseDataset(builtinExamples)
	if err != nil {
		panic(fmt.Sprintf("built-in dataset: %v", err))
	}
	return ds
}

func (ds Dataset) validate() error {
	if len(ds.Positive) == 0 && len(ds.Negative) == 0 {
		return fmt.Errorf("dataset has no examples")
	}
	for name, list := range map[string][]Example{"positive": ds.Positive, "negative": ds.Negative} {
		seen := make(map[uint64]bool, len(list))
		for i, e := range list {
			if strings.TrimSpace(e.Text) == "" {
				return fmt.Errorf("%s example %d: text is required", name, i)
			}
			if seen[e.ID] {
				return fmt.Errorf("%s example %d: duplicate id %d", name, i, e.ID)
			}
			seen[e.ID] = true
		}
	}
	return nil
}
