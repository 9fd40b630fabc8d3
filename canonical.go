package xbridge

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"unicode/utf8"
)

// Canonicalize returns the single deterministic byte form of v: compact
// JSON with object members in their stored order and strings escaped the
// way ECMAScript JSON.stringify escapes them (no HTML escaping, non-ASCII
// emitted as UTF-8).
//
// Values built by the same construction path always produce identical
// bytes. Two objects with the same members in a different order are
// distinct values and canonicalize differently.
func Canonicalize(v Value) ([]byte, error) {
	return appendCanonical(make([]byte, 0, 128), v, "$")
}

func appendCanonical(dst []byte, v Value, path string) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(dst, "null"...), nil
	case KindBool:
		if v.b {
			return append(dst, "true"...), nil
		}
		return append(dst, "false"...), nil
	case KindNumber:
		if !validNumber(v.s) {
			return nil, &SerializationError{Path: path, Reason: "invalid number literal " + strconv.Quote(v.s)}
		}
		return append(dst, v.s...), nil
	case KindString:
		if !utf8.ValidString(v.s) {
			return nil, &SerializationError{Path: path, Reason: "string is not valid UTF-8"}
		}
		return appendString(dst, v.s), nil
	case KindArray:
		dst = append(dst, '[')
		var err error
		for i, item := range v.items {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst, err = appendCanonical(dst, item, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	case KindObject:
		seen := make(map[string]struct{}, len(v.members))
		dst = append(dst, '{')
		var err error
		for i, m := range v.members {
			childPath := memberPath(path, m.Key)
			if !utf8.ValidString(m.Key) {
				return nil, &SerializationError{Path: childPath, Reason: "key is not valid UTF-8"}
			}
			if _, dup := seen[m.Key]; dup {
				return nil, &SerializationError{Path: childPath, Reason: "duplicate key"}
			}
			seen[m.Key] = struct{}{}
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendString(dst, m.Key)
			dst = append(dst, ':')
			dst, err = appendCanonical(dst, m.Value, childPath)
			if err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil
	}
	return nil, &SerializationError{Path: path, Reason: "unknown value kind " + v.kind.String()}
}

const hexDigits = "0123456789abcdef"

func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			continue
		}
		dst = append(dst, s[start:i]...)
		switch c {
		case '"', '\\':
			dst = append(dst, '\\', c)
		case '\b':
			dst = append(dst, '\\', 'b')
		case '\f':
			dst = append(dst, '\\', 'f')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		default:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		}
		start = i + 1
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}

func memberPath(parent, key string) string {
	return parent + "[" + strconv.Quote(key) + "]"
}

// Checksum returns the lowercase hex SHA-256 digest of data (64 chars).
func Checksum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}
