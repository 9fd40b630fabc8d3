package xbridge

import (
	"time"
)

// EventType enumerates producer lifecycle events for Observer pattern.
type EventType string

const (
	CreateStart EventType = "create_start"
	CreateDone  EventType = "create_done"
	SaveStart   EventType = "save_start"
	SaveDone    EventType = "save_done"
	Error       EventType = "error"
)

// Event carries telemetry for observers. It never carries payload content.
type Event struct {
	Type     EventType
	BundleID string
	Producer string
	Artifact string
	Sink     string
	Location string
	Duration time.Duration
	Err      error

	// Internal: attached for async dispatch
	observers []Observer
}

// Result is the outcome of one payload in a batch.
type Result struct {
	Bundle   Bundle
	Location string
	Err      error
}

// PoolStats returns telemetry about the observer pool.
type PoolStats struct {
	Dropped      uint64 // Events dropped due to full buffer
	Processed    uint64 // Events successfully processed
	Panics       uint64 // Observer panics recovered
	ActiveEvents int    // Current queue depth
	Workers      int    // Number of dispatch goroutines
	BufferSize   int    // Channel capacity
}

// Metrics defines observable telemetry for the producer.
type Metrics struct {
	Created       uint64
	Saved         uint64
	CreateErrors  uint64
	SaveErrors    uint64
	EventsDropped uint64
	AvgSaveTimeMs float64
}

// HealthStatus indicates producer health for probes.
type HealthStatus struct {
	Status    string // "healthy", "degraded", "unhealthy"
	Metrics   Metrics
	Timestamp time.Time
	Message   string
}
