package xbridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the createdAt format: UTC, millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Bundle is the signed, checksummed unit of transfer. It is immutable;
// obtain one from Producer.Create or DecodeBundle.
//
// Signature and checksum cover the canonical payload bytes only.
type Bundle struct {
	id        string
	createdAt time.Time
	producer  string
	payload   Value
	signature string
	checksum  string
}

// ID returns the bundle identifier.
func (b Bundle) ID() string { return b.id }

// CreatedAt returns the construction time in UTC.
func (b Bundle) CreatedAt() time.Time { return b.createdAt }

// Producer returns the producer identity that built the bundle.
func (b Bundle) Producer() string { return b.producer }

// Payload returns the authenticated payload.
func (b Bundle) Payload() Value { return b.payload }

// Signature returns the base64 keyed tag over the canonical payload.
func (b Bundle) Signature() string { return b.signature }

// Checksum returns the hex SHA-256 digest of the canonical payload.
func (b Bundle) Checksum() string { return b.checksum }

// IsZero reports whether b was never constructed.
func (b Bundle) IsZero() bool { return b.id == "" }

// Equal reports whether every field of b and o matches.
func (b Bundle) Equal(o Bundle) bool {
	return b.id == o.id &&
		b.createdAt.Equal(o.createdAt) &&
		b.producer == o.producer &&
		b.signature == o.signature &&
		b.checksum == o.checksum &&
		b.payload.Equal(o.payload)
}

// ArtifactName returns the storage name of a JSON artifact for id.
func ArtifactName(id string) string {
	return artifactName(id, ".json")
}

func artifactName(id, ext string) string {
	return "bundle-" + id + ext
}

// IDGenerator returns a fresh, globally unique bundle identifier.
type IDGenerator func() (string, error)

// NewUUID returns a random (version 4) UUID string.
func NewUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// bundleJSON is the artifact layout. Field names and order are the
// cross-implementation contract.
type bundleJSON struct {
	BundleID  string `json:"bundleId"`
	CreatedAt string `json:"createdAt"`
	Producer  string `json:"producer"`
	Payload   Value  `json:"payload"`
	Signature string `json:"signature"`
	Checksum  string `json:"checksum"`
}

func (b Bundle) MarshalJSON() ([]byte, error) {
	if b.IsZero() {
		return nil, ErrInvalidBundle
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(bundleJSON{
		BundleID:  b.id,
		CreatedAt: b.createdAt.UTC().Format(TimestampLayout),
		Producer:  b.producer,
		Payload:   b.payload,
		Signature: b.signature,
		Checksum:  b.checksum,
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (b *Bundle) UnmarshalJSON(data []byte) error {
	var w bundleJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return &SerializationError{Reason: "decode bundle", Err: err}
	}
	out, err := fromWire(w.BundleID, w.CreatedAt, w.Producer, w.Payload, w.Signature, w.Checksum)
	if err != nil {
		return err
	}
	*b = out
	return nil
}

func fromWire(id, createdAt, producer string, payload Value, signature, checksum string) (Bundle, error) {
	missing := func(field string) error {
		return &SerializationError{Path: "$." + field, Reason: "missing bundle field"}
	}
	switch {
	case id == "":
		return Bundle{}, missing("bundleId")
	case createdAt == "":
		return Bundle{}, missing("createdAt")
	case producer == "":
		return Bundle{}, missing("producer")
	case signature == "":
		return Bundle{}, missing("signature")
	case checksum == "":
		return Bundle{}, missing("checksum")
	}
	if payload.Kind() != KindObject {
		return Bundle{}, &SerializationError{Path: "$.payload", Reason: fmt.Sprintf("payload must be an object, got %s", payload.Kind())}
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Bundle{}, &SerializationError{Path: "$.createdAt", Reason: "invalid timestamp", Err: err}
	}
	return Bundle{
		id:        id,
		createdAt: ts.UTC(),
		producer:  producer,
		payload:   payload,
		signature: signature,
		checksum:  checksum,
	}, nil
}
