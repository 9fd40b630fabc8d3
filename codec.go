package xbridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Codec is the Strategy for encoding bundles into stored artifacts.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
	// Extension is appended to the artifact name, e.g. ".json".
	Extension() string
}

// JSONCodec writes UTF-8 JSON indented with two spaces and without HTML
// escaping, the layout staging consumers already read.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (JSONCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }
func (JSONCodec) Name() string                    { return "json" }
func (JSONCodec) Extension() string               { return ".json" }

// CBORCodec writes Core Deterministic CBOR (RFC 8949 §4.2). Bundles carry
// their payload as the canonical JSON bytes so the checksum can be checked
// without re-encoding.
type CBORCodec struct{}

func (CBORCodec) Marshal(v any) ([]byte, error)   { return cborEnc.Marshal(v) }
func (CBORCodec) Unmarshal(b []byte, v any) error { return cborDec.Unmarshal(b, v) }
func (CBORCodec) Name() string                    { return "cbor" }
func (CBORCodec) Extension() string               { return ".cbor" }

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("xbridge: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("xbridge: CBOR decoder initialization failed: " + err.Error())
	}
}

type bundleCBOR struct {
	BundleID  string `cbor:"bundleId"`
	CreatedAt string `cbor:"createdAt"`
	Producer  string `cbor:"producer"`
	Payload   []byte `cbor:"payload"`
	Signature string `cbor:"signature"`
	Checksum  string `cbor:"checksum"`
}

func (b Bundle) MarshalCBOR() ([]byte, error) {
	if b.IsZero() {
		return nil, ErrInvalidBundle
	}
	payload, err := Canonicalize(b.payload)
	if err != nil {
		return nil, err
	}
	return cborEnc.Marshal(bundleCBOR{
		BundleID:  b.id,
		CreatedAt: b.createdAt.UTC().Format(TimestampLayout),
		Producer:  b.producer,
		Payload:   payload,
		Signature: b.signature,
		Checksum:  b.checksum,
	})
}

func (b *Bundle) UnmarshalCBOR(data []byte) error {
	var w bundleCBOR
	if err := cborDec.Unmarshal(data, &w); err != nil {
		return &SerializationError{Reason: "decode bundle", Err: err}
	}
	var payload Value
	if len(w.Payload) > 0 {
		if err := payload.UnmarshalJSON(w.Payload); err != nil {
			return err
		}
	}
	out, err := fromWire(w.BundleID, w.CreatedAt, w.Producer, payload, w.Signature, w.Checksum)
	if err != nil {
		return err
	}
	*b = out
	return nil
}

// CodecFactory constructs codecs via Factory pattern.
type CodecFactory func() Codec

var (
	codecRegistryMu sync.RWMutex
	codecRegistry   = map[string]CodecFactory{
		"json": func() Codec { return JSONCodec{} },
		"cbor": func() Codec { return CBORCodec{} },
	}
)

// RegisterCodec registers a codec factory by name.
func RegisterCodec(name string, factory CodecFactory) error {
	if name == "" {
		return errors.New("codec name must not be empty")
	}
	if factory == nil {
		return errors.New("codec factory must not be nil")
	}
	codecRegistryMu.Lock()
	codecRegistry[name] = factory
	codecRegistryMu.Unlock()
	return nil
}

// NewCodec constructs a codec by name or returns an error.
func NewCodec(name string) (Codec, error) {
	codecRegistryMu.RLock()
	f, ok := codecRegistry[name]
	codecRegistryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("codec %q not registered", name)
	}
	return f(), nil
}
