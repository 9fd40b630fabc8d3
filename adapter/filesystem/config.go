package filesystem

import (
	"fmt"
	"os"
)

// Config for the staging directory sink.
type Config struct {
	// Dir is the staging directory (default "./staging"). Created on demand.
	Dir string
	// DirPerm is used when creating Dir (default 0755).
	DirPerm os.FileMode
	// FilePerm is applied to every artifact (default 0644).
	FilePerm os.FileMode
	// Atomic writes to a temp file in Dir, syncs it and renames it into
	// place so a consumer never sees a partial artifact (default true).
	Atomic bool
}

// Defaults returns a Config with the staging defaults.
func Defaults() Config {
	return Config{
		Dir:      "./staging",
		DirPerm:  0o755,
		FilePerm: 0o644,
		Atomic:   true,
	}
}

// Validate checks Config.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("config: dir required")
	}
	if c.FilePerm&0o600 != 0o600 {
		return fmt.Errorf("config: file_perm must grant owner read/write, got %v", c.FilePerm)
	}
	if c.DirPerm&0o700 != 0o700 {
		return fmt.Errorf("config: dir_perm must grant owner rwx, got %v", c.DirPerm)
	}
	return nil
}

func (c Config) toMap() map[string]any {
	return map[string]any{
		"dir":       c.Dir,
		"dir_perm":  c.DirPerm,
		"file_perm": c.FilePerm,
		"atomic":    c.Atomic,
	}
}

// ConfigFromMap converts a generic map to Config, keeping defaults for
// missing keys.
func ConfigFromMap(m map[string]any) Config {
	c := Defaults()

	getPerm := func(k string, d os.FileMode) os.FileMode {
		switch v := m[k].(type) {
		case os.FileMode:
			return v
		case int:
			return os.FileMode(v)
		case uint32:
			return os.FileMode(v)
		case int64:
			return os.FileMode(v)
		}
		return d
	}

	if v, ok := m["dir"].(string); ok && v != "" {
		c.Dir = v
	}
	c.DirPerm = getPerm("dir_perm", c.DirPerm)
	c.FilePerm = getPerm("file_perm", c.FilePerm)
	if v, ok := m["atomic"].(bool); ok {
		c.Atomic = v
	}
	return c
}
