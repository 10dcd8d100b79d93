// Package compression encodes object bodies for on-disk storage.
//
// Every encoded body starts with a one-byte marker so that small or
// incompressible payloads can be stored raw and still decode unambiguously.
package compression

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const (
	markerRaw  byte = 0
	markerZstd byte = 1

	// minCompressSize is the smallest body worth handing to zstd.
	minCompressSize = 128
)

var ErrCorrupt = errors.New("compression: corrupt body")

type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	enabled bool
}

// NewCompressor builds a compressor. Level 1 is fastest, 3 compresses best,
// anything else maps to the zstd default. A disabled compressor still writes
// and understands the marker byte.
func NewCompressor(level int, enabled bool) (*Compressor, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return &Compressor{decoder: decoder}, nil
	}

	var encoderLevel zstd.EncoderLevel
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		decoder.Close()
		return nil, err
	}

	return &Compressor{
		encoder: encoder,
		decoder: decoder,
		enabled: true,
	}, nil
}

// Compress returns the marked body for data.
func (c *Compressor) Compress(data []byte) []byte {
	if c.enabled && len(data) >= minCompressSize {
		out := c.encoder.EncodeAll(data, []byte{markerZstd})
		if len(out) < len(data)+1 {
			return out
		}
	}
	out := make([]byte, 0, len(data)+1)
	out = append(out, markerRaw)
	return append(out, data...)
}

// Decompress reverses Compress. Bodies written by an enabled compressor can be
// read by a disabled one.
func (c *Compressor) Decompress(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return nil, ErrCorrupt
	}
	switch body[0] {
	case markerRaw:
		out := make([]byte, len(body)-1)
		copy(out, body[1:])
		return out, nil
	case markerZstd:
		out, err := c.decoder.DecodeAll(body[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown marker %#x", ErrCorrupt, body[0])
	}
}

func (c *Compressor) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
