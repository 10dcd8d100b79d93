package backend

import "sync"

// Memory keeps records in a map for the lifetime of the process.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory creates an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

// Get retrieves a copy of the record stored under key.
func (m *Memory) Get(key string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.Clone(), nil
}

// Put stores a copy of rec. It fails with ErrExists if key is already stored.
func (m *Memory) Put(key string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; ok {
		return ErrExists
	}
	m.records[key] = rec.Clone()
	return nil
}

// Has checks if a record exists.
func (m *Memory) Has(key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[key]
	return ok, nil
}

// Range calls fn for every record until fn returns false.
func (m *Memory) Range(fn func(key string, rec Record) bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, rec := range m.records {
		if !fn(k, rec.Clone()) {
			break
		}
	}
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
