package xbridge

import (
	"context"
	"fmt"
	"time"
)

// WriteFunc persists one artifact and returns its location.
type WriteFunc func(ctx context.Context, name string, data []byte) (string, error)

// Middleware composes storage concerns around a WriteFunc.
type Middleware func(next WriteFunc) WriteFunc

// TimeoutMiddleware bounds a single sink write. The sink sees the derived
// context and is expected to abandon the write when it is done. A write the
// sink reports as successful is committed, so it is returned as such even
// if it finished after the deadline; the overrun is only logged.
func TimeoutMiddleware(d time.Duration) Middleware {
	if d <= 0 {
		return func(next WriteFunc) WriteFunc { return next }
	}
	return func(next WriteFunc) WriteFunc {
		return func(ctx context.Context, name string, data []byte) (string, error) {
			tctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			loc, err := next(tctx, name, data)
			if err == nil && tctx.Err() != nil {
				if l, ok := LoggerFromContext(ctx); ok {
					l.Warn().
						Str("artifact", name).
						Str("location", loc).
						Dur("timeout", d).
						Msg("xbridge: write completed after deadline")
				}
			}
			return loc, err
		}
	}
}

// RecoveryMiddleware turns a panicking sink into an error.
func RecoveryMiddleware() Middleware {
	return func(next WriteFunc) WriteFunc {
		return func(ctx context.Context, name string, data []byte) (loc string, err error) {
			defer func() {
				if r := recover(); r != nil {
					loc, err = "", fmt.Errorf("panic recovered: %v", r)
				}
			}()
			return next(ctx, name, data)
		}
	}
}

// Chain composes middlewares around a WriteFunc in order.
func Chain(w WriteFunc, mws ...Middleware) WriteFunc {
	if len(mws) == 0 {
		return w
	}
	wrapped := w
	// Apply in reverse so that first middleware wraps last.
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
