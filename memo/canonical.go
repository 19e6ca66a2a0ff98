package memo

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"math"
	"reflect"
	"slices"
)

// maxDepth bounds recursion so cyclic values fail instead of overflowing.
const maxDepth = 64

// Type tags of the canonical encoding. Changing any of them changes every
// digest.
const (
	tagNil       = 'n'
	tagBool      = 'b'
	tagInt       = 'i'
	tagUint      = 'u'
	tagFloat     = 'f'
	tagComplex   = 'c'
	tagString    = 's'
	tagBytes     = 'y'
	tagList      = 'l'
	tagMap       = 'm'
	tagStruct    = 'r'
	tagCustom    = 'x'
	tagMarshaled = 'B'
)

// Canonicalizer lets a type supply its own stable encoding for hashing.
type Canonicalizer interface {
	AppendCanonical(dst []byte) ([]byte, error)
}

var (
	canonicalizerType   = reflect.TypeFor[Canonicalizer]()
	binaryMarshalerType = reflect.TypeFor[encoding.BinaryMarshaler]()
)

// AppendCanonical appends the canonical encoding of v to dst. The encoding
// depends only on the value, never on map iteration order, pointer
// identity, or host architecture.
func AppendCanonical(dst []byte, v any) ([]byte, error) {
	return appendValue(dst, reflect.ValueOf(v), 0)
}

func appendValue(dst []byte, v reflect.Value, depth int) ([]byte, error) {
	if depth > maxDepth {
		return nil, unhashable(v, "value nested too deeply or cyclic")
	}
	if !v.IsValid() {
		return append(dst, tagNil), nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return append(dst, tagNil), nil
		}
	}

	if v.CanInterface() {
		if v.Type().Implements(canonicalizerType) {
			custom, err := v.Interface().(Canonicalizer).AppendCanonical(nil)
			if err != nil {
				return nil, unhashable(v, err.Error())
			}
			dst = append(dst, tagCustom)
			dst = appendString(dst, v.Type().String())
			return appendBytes(dst, custom), nil
		}
		if v.Type().Implements(binaryMarshalerType) {
			data, err := v.Interface().(encoding.BinaryMarshaler).MarshalBinary()
			if err != nil {
				return nil, unhashable(v, err.Error())
			}
			dst = append(dst, tagMarshaled)
			dst = appendString(dst, v.Type().String())
			return appendBytes(dst, data), nil
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return appendValue(dst, v.Elem(), depth+1)

	case reflect.Bool:
		if v.Bool() {
			return append(dst, tagBool, 1), nil
		}
		return append(dst, tagBool, 0), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst = append(dst, tagInt)
		return binary.BigEndian.AppendUint64(dst, uint64(v.Int())), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		dst = append(dst, tagUint)
		return binary.BigEndian.AppendUint64(dst, v.Uint()), nil

	case reflect.Float32, reflect.Float64:
		dst = append(dst, tagFloat)
		return appendFloat(dst, v.Float()), nil

	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		dst = append(dst, tagComplex)
		dst = appendFloat(dst, real(c))
		return appendFloat(dst, imag(c)), nil

	case reflect.String:
		dst = append(dst, tagString)
		return appendString(dst, v.String()), nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			dst = append(dst, tagBytes)
			return appendBytes(dst, v.Bytes()), nil
		}
		return appendList(dst, v, depth)

	case reflect.Array:
		return appendList(dst, v, depth)

	case reflect.Map:
		return appendMap(dst, v, depth)

	case reflect.Struct:
		return appendStruct(dst, v, depth)

	default:
		return nil, unhashable(v, "unsupported kind "+v.Kind().String())
	}
}

func appendList(dst []byte, v reflect.Value, depth int) ([]byte, error) {
	dst = append(dst, tagList)
	dst = binary.AppendUvarint(dst, uint64(v.Len()))
	var err error
	for i := 0; i < v.Len(); i++ {
		if dst, err = appendValue(dst, v.Index(i), depth+1); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// appendMap sorts entries by the canonical encoding of their keys.
func appendMap(dst []byte, v reflect.Value, depth int) ([]byte, error) {
	type entry struct{ key, value []byte }
	entries := make([]entry, 0, v.Len())

	iter := v.MapRange()
	for iter.Next() {
		k, err := appendValue(nil, iter.Key(), depth+1)
		if err != nil {
			return nil, err
		}
		val, err := appendValue(nil, iter.Value(), depth+1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{key: k, value: val})
	}
	slices.SortFunc(entries, func(a, b entry) int { return bytes.Compare(a.key, b.key) })

	dst = append(dst, tagMap)
	dst = binary.AppendUvarint(dst, uint64(len(entries)))
	for _, e := range entries {
		dst = append(dst, e.key...)
		dst = append(dst, e.value...)
	}
	return dst, nil
}

// appendStruct encodes the struct's type name followed by every field,
// unexported ones included, in declaration order. Hooks only apply to
// fields reachable through exported paths; the rest are encoded
// structurally.
func appendStruct(dst []byte, v reflect.Value, depth int) ([]byte, error) {
	t := v.Type()
	dst = append(dst, tagStruct)
	dst = appendString(dst, t.String())
	dst = binary.AppendUvarint(dst, uint64(t.NumField()))
	var err error
	for i := 0; i < t.NumField(); i++ {
		dst = appendString(dst, t.Field(i).Name)
		if dst, err = appendValue(dst, v.Field(i), depth+1); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func appendFloat(dst []byte, f float64) []byte {
	if f == 0 {
		f = 0 // fold -0 into +0
	}
	if math.IsNaN(f) {
		f = math.NaN()
	}
	return binary.BigEndian.AppendUint64(dst, math.Float64bits(f))
}

func appendString(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

func appendBytes(dst, b []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(b)))
	return append(dst, b...)
}

func unhashable(v reflect.Value, reason string) *UnhashableArgumentError {
	typ := "nil"
	if v.IsValid() {
		typ = v.Type().String()
	}
	return &UnhashableArgumentError{Type: typ, Reason: reason}
}
