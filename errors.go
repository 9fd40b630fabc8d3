package xbridge

import (
	"errors"
	"fmt"
)

var (
	ErrNoSinkConfigured            = errors.New("xbridge: no sink configured")
	ErrProducerClosed              = errors.New("xbridge: producer is closed")
	ErrNoKey                       = errors.New("xbridge: secret key is empty")
	ErrInvalidBundle               = errors.New("xbridge: bundle is not initialized")
	ErrInvalidArtifactName         = errors.New("xbridge: invalid artifact name")
	ErrChecksumMismatch            = errors.New("xbridge: checksum mismatch")
	ErrSignatureInvalid            = errors.New("xbridge: signature invalid")
	ErrObserverPoolShutdownTimeout = errors.New("xbridge: observer pool shutdown timeout")
	ErrSinkClosed                  = errors.New("xbridge: sink is closed")
)

type ErrUnknownSink struct{ name string }

func (e ErrUnknownSink) Error() string { return fmt.Sprintf("xbridge: unknown sink: %s", e.name) }

// SerializationError reports a payload that has no canonical form.
// Path locates the offending value, e.g. $["values"][2].
type SerializationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *SerializationError) Error() string {
	msg := "xbridge: serialization"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SerializationError) Unwrap() error { return e.Err }

// StorageError reports a sink that could not persist an artifact.
type StorageError struct {
	Sink string
	Name string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("xbridge: storage %s: write %s: %v", e.Sink, e.Name, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ConfigurationError reports unusable start-up configuration.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("xbridge: configuration %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
