package filesystem

import (
	"fmt"
	"time"

	"github.com/trickstertwo/xbridge"
	"github.com/trickstertwo/xlog"
)

// NewProducer builds a Producer that stages bundles in cfg.Dir. Start from
// Defaults() and override what you need.
//
// Example:
//
//	cfg := filesystem.Defaults()
//	cfg.Dir = "../../staging"
//	p, err := filesystem.NewProducer(cfg,
//	    filesystem.WithProducerID("ts-producer-001"),
//	    filesystem.WithKey(key),
//	    filesystem.WithLogger(logger),
//	)
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
		return nil, fmt.Errorf("filesystem.NewProducer: %w", err)
	}
	return p, nil
}

// Option configures the xbridge.ProducerBuilder when calling NewProducer.
type Option func(*xbridge.ProducerBuilder)

// WithProducerID sets the producer identity stamped on every bundle.
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

// WithClock injects the clock used for bundle timestamps.
func WithClock(c xbridge.Clock) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithClock(c) }
}

// WithSaveTimeout bounds each file write.
func WithSaveTimeout(d time.Duration) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithSaveTimeout(d) }
}

// WithObserver attaches observers for lifecycle events.
func WithObserver(obs ...xbridge.Observer) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithObserver(obs...) }
}
