package s3

import (
	"fmt"

	"github.com/trickstertwo/xbridge"
	"github.com/trickstertwo/xlog"
)

// NewProducer builds a Producer that stores bundles as S3 objects.
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
		return nil, fmt.Errorf("s3.NewProducer: %w", err)
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

// WithCodec selects a codec by name (default: json).
func WithCodec(name string) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithCodec(name) }
}

// WithObserver attaches observers for lifecycle events.
func WithObserver(obs ...xbridge.Observer) Option {
	return func(b *xbridge.ProducerBuilder) { b.WithObserver(obs...) }
}
