package serializer

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"
)

// ErrNilTarget is returned when Deserialize is given a nil target.
var ErrNilTarget = errors.New("serializer: target is nil")

// Serializer converts results to bytes and back.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Round trip: Deserialize(Serialize(x), &y) leaves y equal to x for the
// value shapes the codec supports.
// - Deserialize: v must be a non-nil pointer.
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, v any) error
}

// Default returns the general-purpose serializer used when none is
// configured.
func Default() Serializer {
	return Gob{}
}

// Gob encodes values with encoding/gob. Each value travels inside a
// one-field envelope struct, so nil pointers, nil interfaces and zero values
// round-trip like any other value. Concrete types stored behind an
// interface (R = any, []any) must be registered with gob.Register; the
// builtin scalar and slice types already are.
//
// A pointer passed to Serialize is dereferenced once, so Serialize(&x) and
// Deserialize(data, &x) agree on the shape of x.
type Gob struct{}

func gobEnvelope(t reflect.Type) reflect.Type {
	return reflect.StructOf([]reflect.StructField{{Name: "V", Type: t}})
}

// Serialize encodes v.
func (Gob) Serialize(v any) (data []byte, err error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, errors.New("serializer: gob encode: untyped nil")
	}
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	env := reflect.New(gobEnvelope(rv.Type())).Elem()
	env.Field(0).Set(rv)

	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("serializer: gob encode %s: %v", rv.Type(), r)
		}
	}()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).EncodeValue(env); err != nil {
		return nil, fmt.Errorf("serializer: gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes data into v, which must be a non-nil pointer.
func (Gob) Deserialize(data []byte, v any) error {
	if v == nil {
		return ErrNilTarget
	}
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("serializer: gob decode: target %T is not a non-nil pointer", v)
	}
	env := reflect.New(gobEnvelope(target.Type().Elem()))
	if err := gob.NewDecoder(bytes.NewReader(data)).DecodeValue(env); err != nil {
		return fmt.Errorf("serializer: gob decode: %w", err)
	}
	target.Elem().Set(env.Elem().Field(0))
	return nil
}

// JSON encodes values with encoding/json.
type JSON struct{}

// Serialize encodes v.
func (JSON) Serialize(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serializer: json encode: %w", err)
	}
	return data, nil
}

// Deserialize decodes data into v.
func (JSON) Deserialize(data []byte, v any) error {
	if v == nil {
		return ErrNilTarget
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("serializer: json decode: %w", err)
	}
	return nil
}

// YAML encodes values with gopkg.in/yaml.v3.
type YAML struct{}

// Serialize encodes v.
func (YAML) Serialize(v any) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serializer: yaml encode: %w", err)
	}
	return data, nil
}

// Deserialize decodes data into v.
func (YAML) Deserialize(data []byte, v any) error {
	if v == nil {
		return ErrNilTarget
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("serializer: yaml decode: %w", err)
	}
	return nil
}

var (
	_ Serializer = Gob{}
	_ Serializer = JSON{}
	_ Serializer = YAML{}
)
