package health

import "context"

// IndexPinger checks vector index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks a model provider's availability.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
