package health

import "context"

// Checker is one dependency probe.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
