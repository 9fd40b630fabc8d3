package xbridge

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"unicode/utf8"
)

var (
	valueType         = reflect.TypeOf(Value{})
	jsonNumberType    = reflect.TypeOf(json.Number(""))
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// MarshalJSON returns the canonical form of v.
func (v Value) MarshalJSON() ([]byte, error) {
	return Canonicalize(v)
}

// UnmarshalJSON decodes JSON into v keeping object member order and
// number literals. Duplicate object keys are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeValue(dec, "$")
	if err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &SerializationError{Path: "$", Reason: "trailing data after JSON value"}
	}
	*v = parsed
	return nil
}

func decodeValue(dec *json.Decoder, path string) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, &SerializationError{Path: path, Reason: "malformed JSON", Err: err}
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Value{kind: KindNumber, s: string(t)}, nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeValue(dec, path+"["+strconv.Itoa(len(items))+"]")
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, &SerializationError{Path: path, Reason: "unterminated array", Err: err}
			}
			return Value{kind: KindArray, items: items}, nil
		case '{':
			var members []Member
			seen := make(map[string]struct{})
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, &SerializationError{Path: path, Reason: "malformed object", Err: err}
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, &SerializationError{Path: path, Reason: fmt.Sprintf("unexpected object key %v", keyTok)}
				}
				childPath := memberPath(path, key)
				if _, dup := seen[key]; dup {
					return Value{}, &SerializationError{Path: childPath, Reason: "duplicate key"}
				}
				seen[key] = struct{}{}
				val, err := decodeValue(dec, childPath)
				if err != nil {
					return Value{}, err
				}
				members = append(members, Member{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, &SerializationError{Path: path, Reason: "unterminated object", Err: err}
			}
			return Value{kind: KindObject, members: members}, nil
		}
	}
	return Value{}, &SerializationError{Path: path, Reason: fmt.Sprintf("unexpected JSON token %v", tok)}
}

// FromAny converts an ordinary Go value into a Value.
//
// Supported: nil, bool, integer and float kinds, json.Number, string,
// slices and arrays ([]byte becomes a base64 string), maps with string
// keys, pointers and interfaces to those, and anything implementing
// json.Marshaler or encoding.TextMarshaler (structs go through their JSON
// form). Go maps are unordered, so map members are emitted in ascending
// key order.
//
// Cycles, NaN/Inf, invalid UTF-8 and unsupported kinds (chan, func,
// complex, unsafe pointers, non-string map keys) fail with a
// *SerializationError.
func FromAny(x any) (Value, error) {
	c := converter{visiting: make(map[visitKey]struct{})}
	return c.convert(reflect.ValueOf(x), "$")
}

type visitKey struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

type converter struct {
	visiting map[visitKey]struct{}
}

func (c *converter) enter(rv reflect.Value, n int, path string) (func(), error) {
	key := visitKey{ptr: rv.Pointer(), typ: rv.Type(), n: n}
	if _, ok := c.visiting[key]; ok {
		return nil, &SerializationError{Path: path, Reason: "cyclic reference"}
	}
	c.visiting[key] = struct{}{}
	return func() { delete(c.visiting, key) }, nil
}

func (c *converter) convert(rv reflect.Value, path string) (Value, error) {
	if !rv.IsValid() {
		return Null(), nil
	}
	t := rv.Type()
	if t == valueType {
		return rv.Interface().(Value), nil
	}
	if t == jsonNumberType {
		v, err := Number(rv.String())
		if err != nil {
			return Value{}, withPath(err, path)
		}
		return v, nil
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return c.convert(rv.Elem(), path)
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
			return c.viaJSON(rv, path)
		}
		leave, err := c.enter(rv, 0, path)
		if err != nil {
			return Value{}, err
		}
		defer leave()
		return c.convert(rv.Elem(), path)
	}

	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		return c.viaJSON(rv, path)
	}

	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(rv.Uint()), nil
	case reflect.Float32:
		v, err := floatValue(rv.Float(), 32)
		if err != nil {
			return Value{}, withPath(err, path)
		}
		return v, nil
	case reflect.Float64:
		v, err := floatValue(rv.Float(), 64)
		if err != nil {
			return Value{}, withPath(err, path)
		}
		return v, nil
	case reflect.String:
		s := rv.String()
		if !utf8.ValidString(s) {
			return Value{}, &SerializationError{Path: path, Reason: "string is not valid UTF-8"}
		}
		return String(s), nil
	case reflect.Slice:
		if rv.IsNil() {
			return Null(), nil
		}
		if t.Elem().Kind() == reflect.Uint8 {
			return String(base64.StdEncoding.EncodeToString(rv.Bytes())), nil
		}
		leave, err := c.enter(rv, rv.Len(), path)
		if err != nil {
			return Value{}, err
		}
		defer leave()
		return c.convertSeq(rv, path)
	case reflect.Array:
		return c.convertSeq(rv, path)
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return Value{}, &SerializationError{Path: path, Reason: "unsupported map key type " + t.Key().String()}
		}
		if rv.IsNil() {
			return Null(), nil
		}
		leave, err := c.enter(rv, 0, path)
		if err != nil {
			return Value{}, err
		}
		defer leave()
		return c.convertMap(rv, path)
	case reflect.Struct:
		return c.viaJSON(rv, path)
	}
	return Value{}, &SerializationError{Path: path, Reason: "unsupported type " + t.String()}
}

func (c *converter) convertSeq(rv reflect.Value, path string) (Value, error) {
	items := make([]Value, rv.Len())
	for i := range items {
		item, err := c.convert(rv.Index(i), path+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return Value{}, err
		}
		items[i] = item
	}
	return Value{kind: KindArray, items: items}, nil
}

func (c *converter) convertMap(rv reflect.Value, path string) (Value, error) {
	keys := make([]string, 0, rv.Len())
	byKey := make(map[string]reflect.Value, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		if !utf8.ValidString(k) {
			return Value{}, &SerializationError{Path: memberPath(path, k), Reason: "key is not valid UTF-8"}
		}
		keys = append(keys, k)
		byKey[k] = iter.Value()
	}
	sort.Strings(keys)

	members := make([]Member, len(keys))
	for i, k := range keys {
		val, err := c.convert(byKey[k], memberPath(path, k))
		if err != nil {
			return Value{}, err
		}
		members[i] = Member{Key: k, Value: val}
	}
	return Value{kind: KindObject, members: members}, nil
}

// viaJSON converts structs and marshaler types through their JSON form.
// encoding/json reports its own cycle and unsupported-value errors.
func (c *converter) viaJSON(rv reflect.Value, path string) (Value, error) {
	data, err := json.Marshal(rv.Interface())
	if err != nil {
		return Value{}, &SerializationError{Path: path, Reason: "json encoding of " + rv.Type().String() + " failed", Err: err}
	}
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, withPath(err, path)
	}
	return v, nil
}

func withPath(err error, path string) error {
	var se *SerializationError
	if errors.As(err, &se) && se.Path == "" {
		cp := *se
		cp.Path = path
		return &cp
	}
	return err
}
