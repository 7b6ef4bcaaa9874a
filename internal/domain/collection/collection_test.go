package collection

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/skills-handbook/internal/domain"
)

func TestDefaults(t *testing.T) {
	pos := DefaultPositive()
	if pos.Name() != "skills-handbook-positive" || pos.Label() != Positive {
		t.Errorf("unexpected positive default: %q %q", pos.Name(), pos.Label())
	}
	if !strings.Contains(pos.Prefix(), "<positive_examples>") {
		t.Errorf("positive prefix must open the positive tag, got %q", pos.Prefix())
	}
	if !strings.Contains(pos.Suffix(), "</positive_examples>") {
		t.Errorf("positive suffix must close the positive tag, got %q", pos.Suffix())
	}

	neg := DefaultNegative()
	if neg.Name() != "skills-handbook-negative" || neg.Label() != Negative {
		t.Errorf("unexpected negative default: %q %q", neg.Name(), neg.Label())
	}
	if !strings.Contains(neg.Prefix(), "<negative_examples>") {
		t.Errorf("negative prefix must open the negative tag, got %q", neg.Prefix())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr error
		anyErr  bool
	}{
		{"valid", New("c", Positive, "", ""), nil, false},
		{"empty name", New("", Negative, "", ""), domain.ErrMissingCollection, true},
		{"bad label", New("c", Label("neutral"), "", ""), nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			if tc.anyErr != (err != nil) {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.anyErr)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
