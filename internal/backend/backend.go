// Package backend implements the record containers behind a content store.
//
// A Backend is a write-once map from digest to Record:
//   - Get/Put/Has for basic operations
//   - Put never overwrites; it reports ErrExists instead
//   - Range walks every record (used for mirroring only)
//
// Callers are expected to serialise check-then-insert sequences themselves;
// backends that can be shared between processes also enforce write-once
// inside their own transactions.
package backend

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("backend: record not found")
	ErrExists   = errors.New("backend: record exists")
	ErrCorrupt  = errors.New("backend: corrupt record")
)

// Record is a stored (name, payload) pair.
type Record struct {
	Name    string
	Payload []byte
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	p := make([]byte, len(r.Payload))
	copy(p, r.Payload)
	return Record{Name: r.Name, Payload: p}
}

// Backend stores records keyed by lowercase hex digest.
type Backend interface {
	// Get returns a copy of the record under key.
	Get(key string) (Record, error)

	// Put inserts rec under key. It fails with ErrExists if key is present.
	Put(key string, rec Record) error

	// Has reports whether key is present.
	Has(key string) (bool, error)

	// Range calls fn for every record until fn returns false.
	Range(fn func(key string, rec Record) bool) error

	// Close releases resources held by the backend.
	Close() error
}

// Encode frames a record as [u32 name length][name][payload].
func Encode(rec Record) []byte {
	buf := make([]byte, 4+len(rec.Name)+len(rec.Payload))
	binary.BigEndian.PutUint32(buf, uint32(len(rec.Name)))
	n := copy(buf[4:], rec.Name)
	copy(buf[4+n:], rec.Payload)
	return buf
}

// Decode parses a frame written by Encode. The returned payload does not
// alias data.
func Decode(data []byte) (Record, error) {
	if len(data) < 4 {
		return Record{}, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	nameLen := int(binary.BigEndian.Uint32(data))
	if nameLen > len(data)-4 {
		return Record{}, fmt.Errorf("%w: name length %d overruns frame", ErrCorrupt, nameLen)
	}
	payload := make([]byte, len(data)-4-nameLen)
	copy(payload, data[4+nameLen:])
	return Record{Name: string(data[4 : 4+nameLen]), Payload: payload}, nil
}
