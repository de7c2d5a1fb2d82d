package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

type jsonCodec[V any] struct{}

// JSON encodes values with encoding/json. HTML escaping is disabled so stored
// text stays readable in the database file.
func JSON[V any]() Codec[V] { return jsonCodec[V]{} }

func (jsonCodec[V]) Encode(v V) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (jsonCodec[V]) Decode(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("json decode: %w", err)
	}
	return v, nil
}

type yamlCodec[V any] struct{}

// YAML encodes values with gopkg.in/yaml.v3.
func YAML[V any]() Codec[V] { return yamlCodec[V]{} }

func (yamlCodec[V]) Encode(v V) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("yaml encode: %w", err)
	}
	return data, nil
}

func (yamlCodec[V]) Decode(data []byte) (V, error) {
	var v V
	if err := yaml.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("yaml decode: %w", err)
	}
	return v, nil
}
