package remote

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/aweris/castore/internal/backend"
)

const (
	LayerMinSize = 2 * 1024 * 1024  // 2MB minimum before combining
	LayerSoftMax = 10 * 1024 * 1024 // 10MB soft maximum

	// KeyLen is the length of a hex encoded 256-bit digest.
	KeyLen = 64
)

// GroupByPrefix buckets records by the first two hex characters of their key.
func GroupByPrefix(records map[string]backend.Record) map[string]map[string]backend.Record {
	result := make(map[string]map[string]backend.Record)
	for key, rec := range records {
		prefix := "00"
		if len(key) >= 2 {
			prefix = key[:2]
		}
		if result[prefix] == nil {
			result[prefix] = make(map[string]backend.Record)
		}
		result[prefix][key] = rec
	}
	return result
}

func CalculatePrefixSizes(byPrefix map[string]map[string]backend.Record) map[string]int64 {
	result := make(map[string]int64)
	for prefix, records := range byPrefix {
		var total int64
		for _, rec := range records {
			total += int64(4 + len(rec.Name) + len(rec.Payload))
		}
		result[prefix] = total
	}
	return result
}

// PackLayer packs records into binary format: [key 64B][length 8B][frame]...
// where frame is backend.Encode of the record. Keys are written in sorted
// order so identical record sets produce identical layers.
func PackLayer(records map[string]backend.Record) ([]byte, error) {
	keys := make([]string, 0, len(records))
	for k := range records {
		if len(k) != KeyLen {
			return nil, fmt.Errorf("pack layer: key %q is not %d characters", k, KeyLen)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	lenBuf := make([]byte, 8)
	for _, key := range keys {
		frame := backend.Encode(records[key])
		buf.WriteString(key)
		binary.BigEndian.PutUint64(lenBuf, uint64(len(frame)))
		buf.Write(lenBuf)
		buf.Write(frame)
	}
	return buf.Bytes(), nil
}

// UnpackLayer reverses PackLayer.
func UnpackLayer(data []byte) (map[string]backend.Record, error) {
	result := make(map[string]backend.Record)
	r := bytes.NewReader(data)
	keyBuf := make([]byte, KeyLen)

	for r.Len() > 0 {
		if _, err := io.ReadFull(r, keyBuf); err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}

		var length uint64
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("read length: %w", err)
		}
		if length > uint64(r.Len()) {
			return nil, fmt.Errorf("record %s: length %d overruns layer", keyBuf, length)
		}

		frame := make([]byte, length)
		if _, err := io.ReadFull(r, frame); err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		rec, err := backend.Decode(frame)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", keyBuf, err)
		}
		result[string(keyBuf)] = rec
	}

	return result, nil
}

// BuildLayerPlan groups prefixes into layers of roughly LayerSoftMax bytes,
// letting an undersized layer grow up to twice that before splitting.
func BuildLayerPlan(prefixSizes map[string]int64) [][]string {
	prefixes := make([]string, 0, len(prefixSizes))
	for p := range prefixSizes {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	var layers [][]string
	var current []string
	var size int64

	for _, prefix := range prefixes {
		prefixSize := prefixSizes[prefix]

		if len(current) == 0 {
			current = append(current, prefix)
			size = prefixSize
			continue
		}

		newSize := size + prefixSize
		if newSize <= LayerSoftMax {
			current = append(current, prefix)
			size = newSize
		} else if size < LayerMinSize && newSize <= 2*LayerSoftMax {
			current = append(current, prefix)
			size = newSize
		} else {
			layers = append(layers, current)
			current = []string{prefix}
			size = prefixSize
		}
	}

	if len(current) > 0 {
		layers = append(layers, current)
	}

	return layers
}

func CollectPrefixRecords(prefixes []string, byPrefix map[string]map[string]backend.Record) map[string]backend.Record {
	result := make(map[string]backend.Record)
	for _, prefix := range prefixes {
		for key, rec := range byPrefix[prefix] {
			result[key] = rec
		}
	}
	return result
}
