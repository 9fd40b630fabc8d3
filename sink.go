package xbridge

import (
	"context"
	"errors"
	"sync"
)

// Sink is the Strategy for the durable storage bundles are written to
// (a staging directory, an object store, a stream).
type Sink interface {
	// Name identifies the sink kind in errors and logs.
	Name() string
	// Write stores data under name, creating the destination container if
	// it does not exist, and returns the resolved location of the artifact.
	// Reusing a name overwrites the previous artifact.
	Write(ctx context.Context, name string, data []byte) (string, error)
	// Close releases resources.
	Close(ctx context.Context) error
}

// SinkFactory constructs sinks from a config blob.
type SinkFactory func(cfg map[string]any) (Sink, error)

var (
	sinkRegistryMu sync.RWMutex
	sinkRegistry   = map[string]SinkFactory{}
)

// RegisterSink registers a storage adapter.
func RegisterSink(name string, factory SinkFactory) error {
	if name == "" {
		return errors.New("sink name must not be empty")
	}
	if factory == nil {
		return errors.New("sink factory must not be nil")
	}
	sinkRegistryMu.Lock()
	sinkRegistry[name] = factory
	sinkRegistryMu.Unlock()
	return nil
}

// NewSink constructs a sink by name with config.
func NewSink(name string, cfg map[string]any) (Sink, error) {
	sinkRegistryMu.RLock()
	f, ok := sinkRegistry[name]
	sinkRegistryMu.RUnlock()
	if !ok {
		return nil, ErrUnknownSink{name: name}
	}
	return f(cfg)
}
