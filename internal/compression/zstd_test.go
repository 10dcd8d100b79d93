package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressor_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		level   int
		enabled bool
	}{
		{"empty", []byte{}, 2, true},
		{"small raw", []byte("hello"), 2, true},
		{"repetitive fastest", bytes.Repeat([]byte("castore "), 200), 1, true},
		{"repetitive best", bytes.Repeat([]byte("castore "), 200), 3, true},
		{"disabled", bytes.Repeat([]byte{0xAB}, 1000), 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompressor(tt.level, tt.enabled)
			require.NoError(t, err)
			defer c.Close()

			body := c.Compress(tt.data)
			out, err := c.Decompress(body)
			require.NoError(t, err)
			assert.Equal(t, tt.data, out)
		})
	}
}

func TestCompressor_ShrinksRepetitiveData(t *testing.T) {
	c, err := NewCompressor(2, true)
	require.NoError(t, err)
	defer c.Close()

	data := bytes.Repeat([]byte("AAAA"), 1000)
	body := c.Compress(data)
	assert.Equal(t, markerZstd, body[0])
	assert.Less(t, len(body), len(data))
}

func TestCompressor_SmallBodyStaysRaw(t *testing.T) {
	c, err := NewCompressor(2, true)
	require.NoError(t, err)
	defer c.Close()

	body := c.Compress([]byte("tiny"))
	assert.Equal(t, append([]byte{markerRaw}, "tiny"...), body)
}

func TestCompressor_DisabledReadsCompressed(t *testing.T) {
	on, err := NewCompressor(2, true)
	require.NoError(t, err)
	defer on.Close()
	off, err := NewCompressor(0, false)
	require.NoError(t, err)
	defer off.Close()

	data := bytes.Repeat([]byte("xyz"), 500)
	out, err := off.Decompress(on.Compress(data))
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestCompressor_Corrupt(t *testing.T) {
	c, err := NewCompressor(2, true)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Decompress(nil)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = c.Decompress([]byte{0x7F, 1, 2})
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = c.Decompress([]byte{markerZstd, 1, 2, 3})
	assert.ErrorIs(t, err, ErrCorrupt)
}
