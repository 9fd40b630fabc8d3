package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/trickstertwo/xbridge"
)

const SinkName = "memory"

// ErrFull is returned when Capacity artifacts are already stored.
var ErrFull = errors.New("memory sink is full")

func init() {
	if err := xbridge.RegisterSink(SinkName, func(cfg map[string]any) (xbridge.Sink, error) {
		return NewSink(ConfigFromMap(cfg)), nil
	}); err != nil {
		panic(fmt.Errorf("xbridge/memory: failed to register sink: %w", err))
	}
}

// Config controls memory sink behavior.
type Config struct {
	// Capacity caps the number of distinct artifacts (default: 0 = unbounded).
	Capacity int
}

func ConfigFromMap(cfg map[string]any) Config {
	getInt := func(k string, d int) int {
		switch v := cfg[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		default:
			return d
		}
	}
	return Config{
		Capacity: max(0, getInt("capacity", 0)),
	}
}

func (c Config) toMap() map[string]any {
	return map[string]any{
		"capacity": c.Capacity,
	}
}

// Sink keeps artifacts in a map (dev/testing). Stored data is copied on
// write and on read.
type Sink struct {
	cfg Config

	mu        sync.RWMutex
	artifacts map[string][]byte

	closed atomic.Bool
	writes atomic.Uint64
}

var _ xbridge.Sink = (*Sink)(nil)

// NewSink creates a new in-memory sink.
func NewSink(cfg Config) *Sink {
	return &Sink{
		cfg:       cfg,
		artifacts: make(map[string][]byte),
	}
}

func (s *Sink) Name() string { return SinkName }

// Write stores a copy of data under name and returns memory://<name>.
func (s *Sink) Write(ctx context.Context, name string, data []byte) (string, error) {
	if s.closed.Load() {
		return "", xbridge.ErrSinkClosed
	}
	if name == "" {
		return "", xbridge.ErrInvalidArtifactName
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.artifacts[name]; !exists && s.cfg.Capacity > 0 && len(s.artifacts) >= s.cfg.Capacity {
		return "", ErrFull
	}
	s.artifacts[name] = buf
	s.writes.Add(1)
	return "memory://" + name, nil
}

// Get returns a copy of the artifact stored under name.
func (s *Sink) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.artifacts[name]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

// Names returns the stored artifact names in sorted order.
func (s *Sink) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.artifacts))
	for n := range s.artifacts {
		names = append(names, n)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of stored artifacts.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.artifacts)
}

// Writes returns the number of successful writes, overwrites included.
func (s *Sink) Writes() uint64 { return s.writes.Load() }

// Close marks the sink closed. Stored artifacts stay readable.
func (s *Sink) Close(ctx context.Context) error {
	s.closed.Store(true)
	return nil
}
