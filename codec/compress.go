package codec

import (
	"fmt"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the block compression applied by Compressed.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionSnappy Compression = "snappy"
	CompressionZstd   Compression = "zstd"
)

// ParseCompression maps a flag or config value to a Compression.
// The empty string selects CompressionNone.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(s)); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionSnappy, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("unknown compression %q: must be one of none, snappy, zstd", s)
	}
}

// zstd encoders and decoders are safe for concurrent EncodeAll/DecodeAll
// and expensive to build, so one of each is shared.
var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func zstdCoders() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		if zstdEncoder, zstdErr = zstd.NewWriter(nil); zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

type compressed[V any] struct {
	inner Codec[V]
	alg   Compression
}

// Compressed wraps inner so that its output is block-compressed with alg.
// Compressed cells are binary and are stored as BLOBs.
func Compressed[V any](inner Codec[V], alg Compression) Codec[V] {
	if alg == CompressionNone || alg == "" {
		return inner
	}
	return compressed[V]{inner: inner, alg: alg}
}

func (c compressed[V]) Encode(v V) ([]byte, error) {
	data, err := c.inner.Encode(v)
	if err != nil {
		return nil, err
	}
	switch c.alg {
	case CompressionSnappy:
		return snappy.Encode(nil, data), nil
	case CompressionZstd:
		enc, _, err := zstdCoders()
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", c.alg)
	}
}

func (c compressed[V]) Decode(data []byte) (V, error) {
	var zero V
	var raw []byte
	switch c.alg {
	case CompressionSnappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return zero, fmt.Errorf("snappy decode: %w", err)
		}
		raw = out
	case CompressionZstd:
		_, dec, err := zstdCoders()
		if err != nil {
			return zero, fmt.Errorf("zstd decoder: %w", err)
		}
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return zero, fmt.Errorf("zstd decode: %w", err)
		}
		raw = out
	default:
		return zero, fmt.Errorf("unknown compression %q", c.alg)
	}
	return c.inner.Decode(raw)
}
