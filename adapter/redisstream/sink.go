package redisstream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trickstertwo/xbridge"
	"github.com/trickstertwo/xlog"
)

const SinkName = "redis-streams"

func init() {
	if err := xbridge.RegisterSink(SinkName, func(cfg map[string]any) (xbridge.Sink, error) {
		return NewSink(ConfigFromMap(cfg))
	}); err != nil {
		panic(fmt.Errorf("xbridge: failed to register sink %q: %w", SinkName, err))
	}
}

// Sink appends artifacts to a Redis stream.
type Sink struct {
	cfg        Config
	client     redis.UniversalClient
	ownsClient bool

	closed atomic.Bool

	// metrics for observability
	written     atomic.Uint64
	writeErrors atomic.Uint64
}

var _ xbridge.Sink = (*Sink)(nil)

// NewSink dials Redis and checks the connection with PING.
func NewSink(cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 1,
	}

	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:    tls.VersionTLS12,
			ServerName:    cfg.TLSServerName,
			Renegotiation: tls.RenegotiateNever,
		}
	}

	client := redis.NewClient(opts)
	if err := ping(client, cfg.PingTimeout); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Sink{cfg: cfg, client: client, ownsClient: true}, nil
}

// NewSinkWithClient uses an existing client. Close leaves the client open.
func NewSinkWithClient(client redis.UniversalClient, cfg Config) (*Sink, error) {
	if client == nil {
		return nil, errors.New("redisstream: nil client")
	}
	if cfg.Stream == "" {
		return nil, fmt.Errorf("config: stream required")
	}
	return &Sink{cfg: cfg, client: client}, nil
}

func (s *Sink) Name() string { return SinkName }

// Stream returns the stream key entries are added to.
func (s *Sink) Stream() string { return s.cfg.Stream }

// Write adds one entry and returns redis://<stream>/<entry-id>.
func (s *Sink) Write(ctx context.Context, name string, data []byte) (string, error) {
	if s.closed.Load() {
		return "", xbridge.ErrSinkClosed
	}
	if name == "" {
		return "", xbridge.ErrInvalidArtifactName
	}

	args := &redis.XAddArgs{
		Stream: s.cfg.Stream,
		ID:     "*", // Let Redis generate ID
		Values: []any{fieldName, name, fieldBody, data},
	}

	// Approximate trimming to keep stream bounded
	if s.cfg.MaxLenApprox > 0 {
		args.MaxLen = s.cfg.MaxLenApprox
		args.Approx = true
	}

	id, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		s.writeErrors.Add(1)
		return "", fmt.Errorf("xadd %s: %w", s.cfg.Stream, err)
	}
	s.written.Add(1)

	loc := "redis://" + s.cfg.Stream + "/" + id
	if l, ok := xbridge.LoggerFromContext(ctx); ok {
		l.With(xlog.Str("stream", s.cfg.Stream), xlog.Str("entry_id", id)).
			Debug().Str("artifact", name).Msg("xbridge/redisstream: entry added")
	}
	return loc, nil
}

// Stats returns successful and failed write counts.
func (s *Sink) Stats() (written, failed uint64) {
	return s.written.Load(), s.writeErrors.Load()
}

func (s *Sink) Close(_ context.Context) error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}
	if !s.ownsClient {
		return nil
	}
	return s.client.Close()
}

func ping(c *redis.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := c.Ping(ctx).Result()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("redis ping timeout: %w", err)
		}
		return err
	}

	if strings.ToUpper(res) != "PONG" {
		return fmt.Errorf("unexpected redis ping result: %s", res)
	}

	return nil
}
