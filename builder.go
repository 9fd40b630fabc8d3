package xbridge

import (
	"context"
	"strings"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// ProducerBuilder constructs Producer instances (Builder pattern).
type ProducerBuilder struct {
	producerID string
	key        Key
	signer     Signer
	ids        IDGenerator

	sinkName string
	sinkCfg  map[string]any
	sinkInst Sink

	codecName string
	codecInst Codec

	middlewares []Middleware
	observers   []Observer
	logger      *xlog.Logger
	clock       Clock
	saveTimeout time.Duration
	concurrency int

	poolWorkers int
	poolBuffer  int
}

// NewProducerBuilder returns a new builder with sensible defaults.
func NewProducerBuilder() *ProducerBuilder {
	return &ProducerBuilder{
		codecName:   "json",
		concurrency: 1,
	}
}

// WithConfig applies a loaded Config: producer identity, key, sink, codec
// and save timeout.
func (pb *ProducerBuilder) WithConfig(cfg Config) *ProducerBuilder {
	pb.producerID = cfg.ProducerID
	pb.key = cfg.Key
	pb.sinkName = cfg.Sink
	pb.sinkCfg = cfg.SinkConfig()
	if cfg.Codec != "" {
		pb.codecName = cfg.Codec
	}
	if cfg.SaveTimeout > 0 {
		pb.saveTimeout = cfg.SaveTimeout
	}
	return pb
}

func (pb *ProducerBuilder) WithProducerID(id string) *ProducerBuilder {
	pb.producerID = id
	return pb
}

// WithKey sets the pre-shared secret used by the default HMAC signer.
func (pb *ProducerBuilder) WithKey(k Key) *ProducerBuilder {
	pb.key = k
	return pb
}

// WithSigner replaces the default HMAC signer.
func (pb *ProducerBuilder) WithSigner(s Signer) *ProducerBuilder {
	pb.signer = s
	return pb
}

func (pb *ProducerBuilder) WithIDGenerator(g IDGenerator) *ProducerBuilder {
	pb.ids = g
	return pb
}

func (pb *ProducerBuilder) WithSink(name string, cfg map[string]any) *ProducerBuilder {
	pb.sinkName = name
	pb.sinkCfg = cfg
	return pb
}

// WithSinkInstance accepts a ready Sink instance.
func (pb *ProducerBuilder) WithSinkInstance(s Sink) *ProducerBuilder {
	pb.sinkInst = s
	return pb
}

func (pb *ProducerBuilder) WithCodec(name string) *ProducerBuilder {
	pb.codecName = name
	return pb
}

// WithCodecInstance accepts a ready Codec instance.
func (pb *ProducerBuilder) WithCodecInstance(c Codec) *ProducerBuilder {
	pb.codecInst = c
	return pb
}

func (pb *ProducerBuilder) WithMiddleware(mw ...Middleware) *ProducerBuilder {
	if len(mw) == 0 {
		return pb
	}
	pb.middlewares = append(pb.middlewares, mw...)
	return pb
}

func (pb *ProducerBuilder) WithObserver(obs ...Observer) *ProducerBuilder {
	for _, o := range obs {
		if o != nil {
			pb.observers = append(pb.observers, o)
		}
	}
	return pb
}

// WithObserverPool dispatches observer events asynchronously.
func (pb *ProducerBuilder) WithObserverPool(workers, bufferSize int) *ProducerBuilder {
	pb.poolWorkers = workers
	pb.poolBuffer = bufferSize
	return pb
}

func (pb *ProducerBuilder) WithLogger(l *xlog.Logger) *ProducerBuilder {
	pb.logger = l
	return pb
}

func (pb *ProducerBuilder) WithClock(c Clock) *ProducerBuilder {
	pb.clock = c
	return pb
}

// WithSaveTimeout bounds each sink write.
func (pb *ProducerBuilder) WithSaveTimeout(d time.Duration) *ProducerBuilder {
	if d > 0 {
		pb.saveTimeout = d
	}
	return pb
}

// WithConcurrency sets how many payloads PublishBatch handles at once.
func (pb *ProducerBuilder) WithConcurrency(n int) *ProducerBuilder {
	if n > 0 {
		pb.concurrency = n
	}
	return pb
}

func (pb *ProducerBuilder) Build() (*Producer, error) {
	producerID := strings.TrimSpace(pb.producerID)
	if producerID == "" {
		return nil, &ConfigurationError{Field: "producer", Reason: "producer identity must not be empty"}
	}

	signer := pb.signer
	if signer == nil {
		s, err := NewHMACSigner(pb.key)
		if err != nil {
			return nil, &ConfigurationError{Field: "secret", Reason: "no secret key supplied", Err: err}
		}
		signer = s
	}

	var cd Codec
	if pb.codecInst != nil {
		cd = pb.codecInst
	} else {
		var err error
		cd, err = NewCodec(pb.codecName)
		if err != nil {
			return nil, &ConfigurationError{Field: "codec", Reason: "unknown codec", Err: err}
		}
	}

	var sk Sink
	switch {
	case pb.sinkInst != nil:
		sk = pb.sinkInst
	case pb.sinkName != "":
		var err error
		sk, err = NewSink(pb.sinkName, pb.sinkCfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoSinkConfigured
	}

	var clk Clock
	if pb.clock != nil {
		clk = pb.clock
	} else {
		clk = xclock.Default()
	}
	var lg *xlog.Logger
	if pb.logger != nil {
		lg = pb.logger
	} else {
		lg = xlog.Default()
	}
	ids := pb.ids
	if ids == nil {
		ids = NewUUID
	}

	// Recovery sits closest to the sink; the timeout wraps everything.
	mws := make([]Middleware, 0, len(pb.middlewares)+1)
	if pb.saveTimeout > 0 {
		mws = append(mws, TimeoutMiddleware(pb.saveTimeout))
	}
	mws = append(mws, pb.middlewares...)
	write := Chain(RecoveryMiddleware()(sk.Write), mws...)

	p := &Producer{
		producerID:  producerID,
		signer:      signer,
		ids:         ids,
		sink:        sk,
		write:       write,
		codec:       cd,
		clock:       clk,
		logger:      lg,
		concurrency: pb.concurrency,
		metrics:     &producerMetrics{},
	}
	if pb.poolWorkers > 0 || pb.poolBuffer > 0 {
		p.observerPool = NewObserverPool(context.Background(), pb.poolWorkers, pb.poolBuffer)
	}

	hasLoggingObserver := false
	for _, o := range pb.observers {
		if _, ok := o.(LoggingObserver); ok {
			hasLoggingObserver = true
			break
		}
	}
	if !hasLoggingObserver && lg != nil {
		p.AddObserver(LoggingObserver{Logger: lg})
	}
	for _, o := range pb.observers {
		p.AddObserver(o)
	}

	return p, nil
}

// New constructs a Producer via Builder and returns a close func for convenience.
func New(init func(pb *ProducerBuilder)) (*Producer, func() error, error) {
	pb := NewProducerBuilder()
	if init != nil {
		init(pb)
	}
	p, err := pb.Build()
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return p.Close(context.Background()) }
	return p, closeFn, nil
}
