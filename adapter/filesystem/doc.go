// Package filesystem provides a staging directory sink for xbridge.
//
// Sink name: "filesystem"
//
// Config keys:
// - dir: staging directory (default "./staging"), created if missing
// - dir_perm: os.FileMode for the directory (default 0755)
// - file_perm: os.FileMode for artifacts (default 0644)
// - atomic: temp file + fsync + rename (default true)
//
// Each bundle becomes one file named bundle-<id>.json. Artifact names must
// be a single path element; anything else is rejected with
// xbridge.ErrInvalidArtifactName.
//
// Example builder usage:
//
//	p, _ := xbridge.NewProducerBuilder().
//	    WithProducerID("ts-producer-001").
//	    WithKey(key).
//	    WithSink(filesystem.SinkName, map[string]any{"dir": "../../staging"}).
//	    Build()
package filesystem
