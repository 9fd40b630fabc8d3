package redisstream

import (
	"fmt"
	"time"

	"github.com/trickstertwo/xbridge"
	"github.com/trickstertwo/xlog"
)

// NewProducer builds a Producer that appends bundles to cfg.Stream.
func NewProducer(cfg Config, opts ...Option) (*xbridge.Producer, error) {
	pb := xbridge.NewProducerBuilder().
		WithSink(SinkName, cfg.toMap())

	for _, o := range opts {
		if o != nil {
			o(pb)
		}
	}
	p, err := pb.Build()
	if err != nil {
		return nil, fmt.Errorf("redisstream.NewProducer: %w", err)
	}
	return p, nil
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

// WithClock injects a custom clock.
func WithClock(c xbridge.Clock) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithClock(c) }
}

// WithCodec selects a codec by name (default: json).
func WithCodec(name string) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithCodec(name) }
}

// WithMiddleware adds storage middlewares.
func WithMiddleware(mw ...xbridge.Middleware) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithMiddleware(mw...) }
}

// WithSaveTimeout bounds each XADD.
func WithSaveTimeout(d time.Duration) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithSaveTimeout(d) }
}

// WithObserver attaches observers for lifecycle events.
func WithObserver(obs ...xbridge.Observer) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithObserver(obs...) }
}
