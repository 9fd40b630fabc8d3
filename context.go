package xbridge

import (
	"context"
	"time"

	"github.com/trickstertwo/xlog"
)

// Clock supplies bundle timestamps. xclock.Clock satisfies it.
type Clock interface {
	Now() time.Time
}

// ctxKey is the base for all context keys in xbridge (prevents collisions).
type ctxKey string

const (
	loggerCtxKey ctxKey = "xbridge:logger"
	clockCtxKey  ctxKey = "xbridge:clock"
)

func injectLogger(ctx context.Context, l *xlog.Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerCtxKey, l)
}

// LoggerFromContext returns the producer logger handed to sinks.
func LoggerFromContext(ctx context.Context) (*xlog.Logger, bool) {
	if v := ctx.Value(loggerCtxKey); v != nil {
		if l, ok := v.(*xlog.Logger); ok && l != nil {
			return l, true
		}
	}
	return nil, false
}

func injectClock(ctx context.Context, c Clock) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, clockCtxKey, c)
}

// ClockFromContext returns the producer clock handed to sinks.
func ClockFromContext(ctx context.Context) (Clock, bool) {
	if v := ctx.Value(clockCtxKey); v != nil {
		if c, ok := v.(Clock); ok && c != nil {
			return c, true
		}
	}
	return nil, false
}

// InjectAll is a convenience helper to inject all standard dependencies.
func InjectAll(ctx context.Context, logger *xlog.Logger, clock Clock) context.Context {
	ctx = injectLogger(ctx, logger)
	ctx = injectClock(ctx, clock)
	return ctx
}
