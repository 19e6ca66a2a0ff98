package serializer

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compressed wraps another Serializer and stores its output as a zstd frame.
type Compressed struct {
	inner Serializer
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// NewCompressed builds a compressing serializer around inner. A nil inner
// uses Default().
func NewCompressed(inner Serializer, level zstd.EncoderLevel) (*Compressed, error) {
	if inner == nil {
		inner = Default()
	}
	if level == 0 {
		level = zstd.SpeedDefault
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("serializer: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("serializer: zstd decoder: %w", err)
	}
	return &Compressed{inner: inner, enc: enc, dec: dec}, nil
}

// Serialize encodes v with the inner serializer and compresses the result.
func (c *Compressed) Serialize(v any) ([]byte, error) {
	raw, err := c.inner.Serialize(v)
	if err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(raw, nil), nil
}

// Deserialize decompresses data and decodes it with the inner serializer.
func (c *Compressed) Deserialize(data []byte, v any) error {
	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("serializer: zstd decode: %w", err)
	}
	return c.inner.Deserialize(raw, v)
}

// Close releases encoder and decoder resources.
func (c *Compressed) Close() error {
	c.dec.Close()
	return c.enc.Close()
}

var _ Serializer = (*Compressed)(nil)
