package health

import (
	"context"
	"sort"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all probed components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates every probed component failed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentVectorIndex = "vector_index"
	ComponentEmbedding   = "embedding"
)

const defaultProbeTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
// Credentials normally arrive per hook call, so both probes are optional.
type Service struct {
	checkers map[string]Checker
	timeout  time.Duration
}

// New creates a Service. Either checker can be nil, in which case it is not probed.
func New(vectorIndex, embedding Checker) *Service {
	checkers := make(map[string]Checker, 2)
	if vectorIndex != nil {
		checkers[ComponentVectorIndex] = vectorIndex
	}
	if embedding != nil {
		checkers[ComponentEmbedding] = embedding
	}
	return &Service{checkers: checkers, timeout: defaultProbeTimeout}
}

// Check runs health checks against all configured components.
// With nothing configured the process itself is reported healthy.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checkers))

	names := make([]string, 0, len(s.checkers))
	for name := range s.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checkers[name].HealthCheck(probeCtx)
		cancel()
		if err != nil {
			checks[name] = CheckError
			failed++
		} else {
			checks[name] = CheckOK
		}
	}

	status := Healthy
	switch {
	case failed > 0 && failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
