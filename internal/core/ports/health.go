package ports

import "context"

// HealthChecker reports the health of a backing dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
