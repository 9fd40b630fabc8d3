package xbridge

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const redacted = "[REDACTED]"

// Key is the pre-shared secret used to authenticate bundle payloads. It
// holds a private copy of the secret and never prints it.
type Key struct {
	secret []byte
}

// NewKey copies secret into a Key. An empty secret is rejected.
func NewKey(secret []byte) (Key, error) {
	if len(secret) == 0 {
		return Key{}, ErrNoKey
	}
	cp := make([]byte, len(secret))
	copy(cp, secret)
	return Key{secret: cp}, nil
}

// IsZero reports whether k holds no secret.
func (k Key) IsZero() bool { return len(k.secret) == 0 }

func (k Key) String() string   { return redacted }
func (k Key) GoString() string { return redacted }

// MarshalText keeps the secret out of any encoded configuration dump.
func (k Key) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Signer produces and checks the keyed authentication tag of canonical
// payload bytes.
type Signer interface {
	Algorithm() string
	Sign(msg []byte) string
	Verify(msg []byte, signature string) error
}

// HMACSigner signs with HMAC-SHA256 and encodes tags as standard base64.
type HMACSigner struct {
	key Key
}

var _ Signer = HMACSigner{}

// NewHMACSigner returns a signer over k.
func NewHMACSigner(k Key) (HMACSigner, error) {
	if k.IsZero() {
		return HMACSigner{}, ErrNoKey
	}
	return HMACSigner{key: k}, nil
}

func (HMACSigner) Algorithm() string { return "hmac-sha256" }

func (s HMACSigner) Sign(msg []byte) string {
	return base64.StdEncoding.EncodeToString(s.mac(msg))
}

// Verify compares in constant time.
func (s HMACSigner) Verify(msg []byte, signature string) error {
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not base64: %v", ErrSignatureInvalid, err)
	}
	if !hmac.Equal(got, s.mac(msg)) {
		return ErrSignatureInvalid
	}
	return nil
}

func (s HMACSigner) mac(msg []byte) []byte {
	m := hmac.New(sha256.New, s.key.secret)
	m.Write(msg)
	return m.Sum(nil)
}

// Verify recomputes the canonical payload bytes of b and checks them
// against its checksum and signature. Only the payload is authenticated:
// bundleId, createdAt and producer are not covered.
func Verify(b Bundle, s Signer) error {
	canonical, err := Canonicalize(b.payload)
	if err != nil {
		return err
	}
	if Checksum(canonical) != b.checksum {
		return ErrChecksumMismatch
	}
	return s.Verify(canonical, b.signature)
}
