package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/trickstertwo/xbridge"
	"github.com/trickstertwo/xlog"
)

const SinkName = "filesystem"

func init() {
	if err := xbridge.RegisterSink(SinkName, func(cfg map[string]any) (xbridge.Sink, error) {
		return NewSink(ConfigFromMap(cfg))
	}); err != nil {
		panic(fmt.Errorf("xbridge: failed to register sink %q: %w", SinkName, err))
	}
}

// Sink writes each artifact as one file in the staging directory.
type Sink struct {
	cfg    Config
	closed atomic.Bool
}

var _ xbridge.Sink = (*Sink)(nil)

// NewSink validates cfg. The directory is created on first write.
func NewSink(cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sink{cfg: cfg}, nil
}

func (s *Sink) Name() string { return SinkName }

// Dir returns the staging directory.
func (s *Sink) Dir() string { return s.cfg.Dir }

// Write stores data as Dir/name and returns that path.
func (s *Sink) Write(ctx context.Context, name string, data []byte) (string, error) {
	if s.closed.Load() {
		return "", xbridge.ErrSinkClosed
	}
	if err := validName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.cfg.Dir, s.cfg.DirPerm); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	path := filepath.Join(s.cfg.Dir, name)
	var err error
	if s.cfg.Atomic {
		err = s.writeAtomic(path, data)
	} else {
		err = os.WriteFile(path, data, s.cfg.FilePerm)
	}
	if err != nil {
		return "", err
	}

	if l, ok := xbridge.LoggerFromContext(ctx); ok {
		l.Debug().Str("path", path).Msg("xbridge/filesystem: artifact written")
	}
	return path, nil
}

func (s *Sink) writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(s.cfg.Dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, s.cfg.FilePerm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func (s *Sink) Close(ctx context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	if l, ok := xbridge.LoggerFromContext(ctx); ok {
		l.With(xlog.Str("dir", s.cfg.Dir)).Debug().Msg("xbridge/filesystem: sink closed")
	}
	return nil
}

// validName accepts a single path element only.
func validName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
	default:
		return nil
	}
	return fmt.Errorf("%w: %q", xbridge.ErrInvalidArtifactName, name)
}
