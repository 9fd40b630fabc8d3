package xbridge

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xlog"
)

var _ API = (*Producer)(nil)
var _ HealthChecker = (*Producer)(nil)

// Producer builds authenticated bundles and writes them to a Sink.
//
// The producer identity and signer are fixed at Build time and shared
// read-only by every call; Create, Save and Publish are safe for concurrent
// use and each bundle is independent of every other.
type Producer struct {
	producerID   string
	signer       Signer
	ids          IDGenerator
	sink         Sink
	write        WriteFunc
	codec        Codec
	clock        Clock
	logger       *xlog.Logger
	concurrency  int
	observerPool *ObserverPool
	observersMu  sync.RWMutex
	observers    []Observer
	metrics      *producerMetrics
	closed       atomic.Bool
	closeOnce    sync.Once
}

type producerMetrics struct {
	created      atomic.Uint64
	saved        atomic.Uint64
	createErrors atomic.Uint64
	saveErrors   atomic.Uint64
	saveNs       atomic.Int64
}

// ProducerID returns the identity stamped on every bundle.
func (p *Producer) ProducerID() string { return p.producerID }

// Codec returns the configured codec (Strategy).
func (p *Producer) Codec() Codec { return p.codec }

// Create canonicalizes payload once, then checksums and signs those bytes
// and stamps a fresh id and timestamp. The payload must be an object.
func (p *Producer) Create(payload Value) (Bundle, error) {
	if p.closed.Load() {
		return Bundle{}, ErrProducerClosed
	}

	start := p.clock.Now()
	p.notify(Event{Type: CreateStart, Producer: p.producerID})

	b, err := p.build(payload, start)

	p.notify(Event{
		Type:     CreateDone,
		BundleID: b.id,
		Producer: p.producerID,
		Duration: p.clock.Now().Sub(start),
		Err:      err,
	})
	if err != nil {
		p.metrics.createErrors.Add(1)
		return Bundle{}, err
	}
	p.metrics.created.Add(1)
	return b, nil
}

// CreateFrom converts an ordinary Go value with FromAny and calls Create.
func (p *Producer) CreateFrom(payload any) (Bundle, error) {
	if p.closed.Load() {
		return Bundle{}, ErrProducerClosed
	}
	v, err := FromAny(payload)
	if err != nil {
		p.metrics.createErrors.Add(1)
		p.notify(Event{Type: Error, Producer: p.producerID, Err: err})
		return Bundle{}, err
	}
	return p.Create(v)
}

func (p *Producer) build(payload Value, now time.Time) (Bundle, error) {
	if payload.Kind() != KindObject {
		return Bundle{}, &SerializationError{Path: "$", Reason: "payload must be an object, got " + payload.Kind().String()}
	}
	canonical, err := Canonicalize(payload)
	if err != nil {
		return Bundle{}, err
	}
	id, err := p.ids()
	if err != nil {
		return Bundle{}, err
	}
	return Bundle{
		id:        id,
		createdAt: now.UTC().Truncate(time.Millisecond),
		producer:  p.producerID,
		payload:   payload,
		signature: p.signer.Sign(canonical),
		checksum:  Checksum(canonical),
	}, nil
}

// Save encodes b with the configured codec and writes it to the sink as
// bundle-<id><ext>. It returns the artifact location reported by the sink.
// Sink failures are returned as *StorageError.
func (p *Producer) Save(ctx context.Context, b Bundle) (string, error) {
	if p.closed.Load() {
		return "", ErrProducerClosed
	}
	if b.IsZero() {
		return "", ErrInvalidBundle
	}

	name := artifactName(b.id, p.codec.Extension())
	data, err := p.codec.Marshal(b)
	if err != nil {
		p.metrics.saveErrors.Add(1)
		err = &SerializationError{Reason: "encode bundle " + b.id + " as " + p.codec.Name(), Err: err}
		p.notify(Event{Type: Error, BundleID: b.id, Producer: p.producerID, Artifact: name, Err: err})
		return "", err
	}

	start := p.clock.Now()
	p.notify(Event{Type: SaveStart, BundleID: b.id, Producer: p.producerID, Artifact: name, Sink: p.sink.Name()})

	loc, err := p.write(InjectAll(ctx, p.logger, p.clock), name, data)

	duration := p.clock.Now().Sub(start)
	if err != nil {
		loc = ""
		err = &StorageError{Sink: p.sink.Name(), Name: name, Err: err}
		p.metrics.saveErrors.Add(1)
	} else {
		p.metrics.saved.Add(1)
		p.recordSaveTime(duration.Nanoseconds())
	}

	p.notify(Event{
		Type:     SaveDone,
		BundleID: b.id,
		Producer: p.producerID,
		Artifact: name,
		Sink:     p.sink.Name(),
		Location: loc,
		Duration: duration,
		Err:      err,
	})
	return loc, err
}

// Publish creates a bundle from payload and saves it.
func (p *Producer) Publish(ctx context.Context, payload Value) (Bundle, string, error) {
	b, err := p.Create(payload)
	if err != nil {
		return Bundle{}, "", err
	}
	loc, err := p.Save(ctx, b)
	if err != nil {
		return b, "", err
	}
	return b, loc, nil
}

// PublishBatch publishes every payload independently and returns one
// Result per payload in input order. A failing payload never affects the
// others; bundles already written stay written.
func (p *Producer) PublishBatch(ctx context.Context, payloads ...Value) []Result {
	results := make([]Result, len(payloads))
	if len(payloads) == 0 {
		return results
	}

	run := func(i int) {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Err: err}
			return
		}
		b, loc, err := p.Publish(ctx, payloads[i])
		results[i] = Result{Bundle: b, Location: loc, Err: err}
	}

	workers := p.concurrency
	if workers <= 1 {
		for i := range payloads {
			run(i)
		}
		return results
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range payloads {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer func() {
				<-sem
				wg.Done()
			}()
			run(i)
		}(i)
	}
	wg.Wait()
	return results
}

// GetMetrics returns a snapshot of producer counters.
func (p *Producer) GetMetrics() Metrics {
	var dropped uint64
	if p.observerPool != nil {
		dropped = p.observerPool.Stats().Dropped
	}
	return Metrics{
		Created:       p.metrics.created.Load(),
		Saved:         p.metrics.saved.Load(),
		CreateErrors:  p.metrics.createErrors.Load(),
		SaveErrors:    p.metrics.saveErrors.Load(),
		EventsDropped: dropped,
		AvgSaveTimeMs: float64(p.metrics.saveNs.Load()) / 1e6,
	}
}

// Health reports "unhealthy" once closed and "degraded" when more than 5%
// of saves failed.
func (p *Producer) Health(ctx context.Context) HealthStatus {
	if p.closed.Load() {
		return HealthStatus{
			Status:    "unhealthy",
			Timestamp: p.clock.Now(),
			Message:   "producer is closed",
		}
	}

	metrics := p.GetMetrics()
	status := "healthy"

	attempts := metrics.Saved + metrics.SaveErrors
	if metrics.SaveErrors > 0 && attempts > 0 {
		errorRate := float64(metrics.SaveErrors) / float64(attempts)
		if errorRate > 0.05 {
			status = "degraded"
		}
	}

	return HealthStatus{
		Status:    status,
		Metrics:   metrics,
		Timestamp: p.clock.Now(),
	}
}

// Close drains observers and closes the sink. It is idempotent.
func (p *Producer) Close(ctx context.Context) error {
	var closeErr error

	p.closeOnce.Do(func() {
		p.closed.Store(true)

		if p.observerPool != nil {
			if err := p.observerPool.Close(5 * time.Second); err != nil {
				p.logger.Warn().Err(err).Msg("xbridge: observer pool shutdown timeout")
				closeErr = err
			}
		}

		if err := p.sink.Close(ctx); err != nil {
			p.logger.Error().Err(err).Msg("xbridge: sink close failed")
			closeErr = err
		}
	})

	return closeErr
}

// AddObserver registers an observer (thread-safe).
func (p *Producer) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	p.observersMu.Lock()
	p.observers = append(p.observers, obs)
	p.observersMu.Unlock()
}

// RemoveObserver removes an observer. Observers of uncomparable types
// (such as ObserverFunc) cannot be removed.
func (p *Producer) RemoveObserver(obs Observer) {
	if obs == nil || !reflect.TypeOf(obs).Comparable() {
		return
	}
	p.observersMu.Lock()
	defer p.observersMu.Unlock()

	for i, o := range p.observers {
		if o == obs {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// notify dispatches e synchronously, or through the observer pool when
// one is configured.
func (p *Producer) notify(e Event) {
	p.observersMu.RLock()
	if len(p.observers) == 0 {
		p.observersMu.RUnlock()
		return
	}
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.observersMu.RUnlock()

	if p.observerPool != nil {
		p.observerPool.Notify(e, observers)
		return
	}
	for _, o := range observers {
		o.OnEvent(e)
	}
}

// recordSaveTime keeps an exponential moving average of write latency.
func (p *Producer) recordSaveTime(ns int64) {
	const alpha = 0.2
	current := p.metrics.saveNs.Load()
	if current == 0 {
		p.metrics.saveNs.Store(ns)
		return
	}
	p.metrics.saveNs.Store(int64(float64(ns)*alpha + float64(current)*(1-alpha)))
}
