package memory

import (
	"fmt"

	"github.com/trickstertwo/xbridge"
	"github.com/trickstertwo/xlog"
)

// NewProducer builds a Producer on a fresh memory sink and returns both, so
// callers can inspect what was written.
//
// Example:
//
//	p, sink, err := memory.NewProducer(memory.Config{},
//	    memory.WithProducerID("bench-producer"),
//	    memory.WithKey(key),
//	    memory.WithConcurrency(8),
//	)
func NewProducer(cfg Config, opts ...Option) (*xbridge.Producer, *Sink, error) {
	sink := NewSink(cfg)
	pb := xbridge.NewProducerBuilder().
		WithSinkInstance(sink)

	for _, o := range opts {
		if o != nil {
			o(pb)
		}
	}

	p, err := pb.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("memory.NewProducer: %w", err)
	}
	return p, sink, nil
}

// Option configures the xbridge.ProducerBuilder when calling NewProducer.
type Option func(*xbridge.ProducerBuilder)

// WithProducerID sets the producer identity.
func WithProducerID(id string) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithProducerID(id) }
}

// WithKey sets the signing secret.
func WithKey(k xbridge.Key) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithKey(k) }
}

// WithLogger injects a custom xlog logger.
func WithLogger(l *xlog.Logger) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithLogger(l) }
}

// WithCodec selects a codec by name (default: "json").
func WithCodec(name string) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithCodec(name) }
}

// WithMiddleware adds storage middlewares (timeout, recovery, etc).
func WithMiddleware(mw ...xbridge.Middleware) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithMiddleware(mw...) }
}

// WithObserver attaches observers for lifecycle events.
func WithObserver(obs ...xbridge.Observer) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithObserver(obs...) }
}

// WithObserverPool configures async observer pool for non-blocking notifications.
func WithObserverPool(workers, bufferSize int) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithObserverPool(workers, bufferSize) }
}

// WithConcurrency sets PublishBatch parallelism.
func WithConcurrency(n int) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithConcurrency(n) }
}
