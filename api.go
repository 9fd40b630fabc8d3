package xbridge

import (
	"context"
)

// HealthChecker provides health status for production monitoring.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// API represents the complete xbridge producer surface.
type API interface {
	Create(payload Value) (Bundle, error)
	CreateFrom(payload any) (Bundle, error)
	Save(ctx context.Context, b Bundle) (string, error)
	Publish(ctx context.Context, payload Value) (Bundle, string, error)
	PublishBatch(ctx context.Context, payloads ...Value) []Result
	Close(ctx context.Context) error
	GetMetrics() Metrics
	Health(ctx context.Context) HealthStatus
	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
}
