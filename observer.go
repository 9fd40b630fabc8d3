package xbridge

import (
	"github.com/trickstertwo/xlog"
)

// Observer receives producer lifecycle events. Implementations should be non-blocking.
type Observer interface {
	OnEvent(e Event)
}

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(e Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// LoggingObserver is an Adapter that emits producer events via xlog.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) OnEvent(e Event) {
	if o.Logger == nil {
		return
	}
	ev := o.Logger.With(
		xlog.Str("type", string(e.Type)),
		xlog.Str("bundle_id", e.BundleID),
		xlog.Str("producer", e.Producer),
		xlog.Str("artifact", e.Artifact),
		xlog.Str("sink", e.Sink),
		xlog.Str("location", e.Location),
	)
	if e.Duration > 0 {
		ev = ev.With(xlog.Dur("duration", e.Duration))
	}
	if e.Err != nil || e.Type == Error {
		ev.Warn().Err(e.Err).Msg("xbridge event")
		return
	}
	ev.Debug().Msg("xbridge event")
}
