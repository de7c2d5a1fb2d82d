// Package codec defines the encoding boundary between in-memory values and the
// scalar cells stored in a sqldict table.
//
// A Codec is fixed when a Dict is opened; nothing above it knows how values are
// represented on disk. Every codec must satisfy
//
//	Decode(Encode(v)) == v
//
// for the values it accepts. Encode(Decode(b)) need not reproduce b.
//
// Available codecs:
//   - JSON: encoding/json, the default
//   - Canonical: RFC 8785 canonical JSON for dynamically typed values
//   - YAML: gopkg.in/yaml.v3
//   - String and Bytes: identity codecs for raw payloads
//   - Compressed: wraps any codec with snappy or zstd block compression
//   - Funcs: adapts a pair of plain functions
package codec

import "fmt"

// Codec converts values of type V to and from their stored form.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(data []byte) (V, error)
}

// Funcs adapts an encode/decode function pair to a Codec.
type Funcs[V any] struct {
	EncodeFunc func(V) ([]byte, error)
	DecodeFunc func([]byte) (V, error)
}

// Encode implements Codec.
func (f Funcs[V]) Encode(v V) ([]byte, error) {
	if f.EncodeFunc == nil {
		return nil, fmt.Errorf("codec: encode function is nil")
	}
	return f.EncodeFunc(v)
}

// Decode implements Codec.
func (f Funcs[V]) Decode(data []byte) (V, error) {
	if f.DecodeFunc == nil {
		var zero V
		return zero, fmt.Errorf("codec: decode function is nil")
	}
	return f.DecodeFunc(data)
}

type stringCodec struct{}

// String stores strings verbatim.
func String() Codec[string] { return stringCodec{} }

func (stringCodec) Encode(v string) ([]byte, error)    { return []byte(v), nil }
func (stringCodec) Decode(data []byte) (string, error) { return string(data), nil }

type bytesCodec struct{}

// Bytes stores byte slices verbatim. Decode returns a copy of data.
func Bytes() Codec[[]byte] { return bytesCodec{} }

func (bytesCodec) Encode(v []byte) ([]byte, error) { return v, nil }

func (bytesCodec) Decode(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
