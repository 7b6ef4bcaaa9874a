package handbook

import (
	"github.com/kailas-cloud/skills-handbook/internal/domain/collection"
	"github.com/kailas-cloud/skills-handbook/internal/domain/search/result"
)

// CollectionHits reports what one collection contributed to the request.
type CollectionHits struct {
	Collection string          `json:"collection"`
	Count      int             `json:"count"`
	Memories   []result.Result `json:"memories"`
}

// Summary is the diagnostic data returned to the host.
// Collections without hits are omitted; failed collections appear under Failures.
type Summary struct {
	Positive *CollectionHits             `json:"positive,omitempty"`
	Negative *CollectionHits             `json:"negative,omitempty"`
	Failures map[collection.Label]string `json:"failures,omitempty"`
}

func (s *Summary) addHits(spec collection.Spec, hits []result.Result) {
	entry := &CollectionHits{Collection: spec.Name(), Count: len(hits), Memories: hits}
	switch spec.Label() {
	case collection.Positive:
		s.Positive = entry
	case collection.Negative:
		s.Negative = entry
	}
}

func (s *Summary) addFailure(label collection.Label, msg string) {
	if s.Failures == nil {
		s.Failures = make(map[collection.Label]string)
	}
	s.Failures[label] = msg
}

// data returns the summary for the host, or nil when there is nothing to report.
func (s *Summary) data() any {
	if s.Positive == nil && s.Negative == nil && len(s.Failures) == 0 {
		return nil
	}
	return s
}
