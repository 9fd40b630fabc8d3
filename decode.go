package xbridge

import "encoding/json"

// DecodeBundle parses an artifact written with codec c.
func DecodeBundle(c Codec, data []byte) (Bundle, error) {
	var b Bundle
	if err := c.Unmarshal(data, &b); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// DecodePayload unmarshals the canonical payload of b into a typed value.
func DecodePayload[T any](b Bundle) (T, error) {
	var v T
	data, err := Canonicalize(b.payload)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}
