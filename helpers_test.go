package xbridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 1, 2, 3, 4, 5, 678_900_000, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// seqIDs returns bundle-independent, predictable ids.
func seqIDs() IDGenerator {
	var n atomic.Int64
	return func() (string, error) {
		return fmt.Sprintf("id-%04d", n.Add(1)), nil
	}
}

// fakeSink records writes in memory.
type fakeSink struct {
	mu      sync.Mutex
	data    map[string][]byte
	order   []string
	fail    map[string]error
	failAll error
	panicOn string
	delay   time.Duration
	closed  atomic.Int32
}

func newFakeSink() *fakeSink {
	return &fakeSink{data: map[string][]byte{}, fail: map[string]error{}}
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if name == s.panicOn {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return "", s.failAll
	}
	if err := s.fail[name]; err != nil {
		return "", err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.data[name] = cp
	s.order = append(s.order, name)
	return "fake://" + name, nil
}

func (s *fakeSink) Close(context.Context) error {
	s.closed.Add(1)
	return nil
}

func (s *fakeSink) get(name string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[name]
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func demoKey(t testing.TB) Key {
	t.Helper()
	k, err := NewKey([]byte("demo-secret-key"))
	require.NoError(t, err)
	return k
}

func newTestProducer(t *testing.T, sink Sink, configure ...func(*ProducerBuilder)) *Producer {
	t.Helper()
	pb := NewProducerBuilder().
		WithProducerID("ts-producer-001").
		WithKey(demoKey(t)).
		WithClock(fixedClock{t: testTime}).
		WithIDGenerator(seqIDs()).
		WithSinkInstance(sink)
	for _, c := range configure {
		c(pb)
	}
	p, err := pb.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}
