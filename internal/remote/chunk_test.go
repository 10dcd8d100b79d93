package remote

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/castore/internal/backend"
)

func key(prefix string, n int) string {
	s := fmt.Sprintf("%s%d", prefix, n)
	return s + strings.Repeat("0", KeyLen-len(s))
}

func TestPackUnpackLayer(t *testing.T) {
	records := map[string]backend.Record{
		key("aa", 1): {Name: "a.txt", Payload: []byte("hello")},
		key("aa", 2): {Name: "", Payload: []byte{}},
		key("bb", 3): {Name: "big.bin", Payload: bytes.Repeat([]byte{0xAB}, 10000)},
	}

	data, err := PackLayer(records)
	require.NoError(t, err)

	got, err := UnpackLayer(data)
	require.NoError(t, err)
	require.Len(t, got, len(records))
	for k, rec := range records {
		assert.Equal(t, rec.Name, got[k].Name)
		assert.Equal(t, len(rec.Payload), len(got[k].Payload))
		assert.True(t, bytes.Equal(rec.Payload, got[k].Payload))
	}
}

func TestPackLayer_Deterministic(t *testing.T) {
	records := map[string]backend.Record{
		key("cc", 1): {Name: "x", Payload: []byte("1")},
		key("aa", 2): {Name: "y", Payload: []byte("2")},
		key("bb", 3): {Name: "z", Payload: []byte("3")},
	}
	first, err := PackLayer(records)
	require.NoError(t, err)
	for range 5 {
		again, err := PackLayer(records)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPackLayer_RejectsBadKey(t *testing.T) {
	_, err := PackLayer(map[string]backend.Record{"short": {}})
	assert.Error(t, err)
}

func TestUnpackLayer_Truncated(t *testing.T) {
	data, err := PackLayer(map[string]backend.Record{
		key("aa", 1): {Name: "a", Payload: []byte("payload")},
	})
	require.NoError(t, err)

	for _, n := range []int{10, KeyLen + 4, len(data) - 1} {
		_, err := UnpackLayer(data[:n])
		assert.Error(t, err, "truncated at %d", n)
	}
}

func TestGroupByPrefix(t *testing.T) {
	records := map[string]backend.Record{
		key("aa", 1): {},
		key("aa", 2): {},
		key("bb", 3): {},
	}
	groups := GroupByPrefix(records)
	assert.Len(t, groups, 2)
	assert.Len(t, groups["aa"], 2)
	assert.Len(t, groups["bb"], 1)

	sizes := CalculatePrefixSizes(map[string]map[string]backend.Record{
		"aa": {key("aa", 1): {Name: "ab", Payload: []byte("cdef")}},
	})
	assert.Equal(t, int64(4+2+4), sizes["aa"])
}

func TestBuildLayerPlan(t *testing.T) {
	tests := []struct {
		name  string
		sizes map[string]int64
		want  [][]string
	}{
		{
			name:  "empty",
			sizes: map[string]int64{},
			want:  nil,
		},
		{
			name:  "all small fit one layer",
			sizes: map[string]int64{"aa": 100, "bb": 200, "cc": 300},
			want:  [][]string{{"aa", "bb", "cc"}},
		},
		{
			name:  "split at soft max",
			sizes: map[string]int64{"aa": 6 << 20, "bb": 6 << 20},
			want:  [][]string{{"aa"}, {"bb"}},
		},
		{
			name:  "undersized layer absorbs neighbour",
			sizes: map[string]int64{"aa": 1 << 20, "bb": 12 << 20},
			want:  [][]string{{"aa", "bb"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildLayerPlan(tt.sizes))
		})
	}
}
