package castore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aweris/castore/internal/backend"
)

// ContentRecord is a stored (name, payload) pair.
type ContentRecord = backend.Record

// Store is a write-once content-addressed blob store.
type Store struct {
	mu      sync.Mutex
	records backend.Backend
	closed  bool

	sizeLimit int
	observer  Observer
	logger    *slog.Logger
	opts      *Options
}

// New creates an empty in-memory store. Without options the payload ceiling
// is DefaultSizeLimit.
func New(opts ...Option) *Store {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return newStore(backend.NewMemory(), options)
}

// Open creates or opens a store backed by path. For BackendBolt (the default)
// path is a database file; for BackendLocal it is a directory. Records
// written in earlier sessions remain visible and write-once.
func Open(path string, opts ...Option) (*Store, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	var (
		b   backend.Backend
		err error
	)
	switch options.Backend {
	case BackendMemory:
		b = backend.NewMemory()
	case BackendLocal:
		b, err = backend.NewLocal(expandPath(path), backend.LocalOptions{
			CacheSize:          options.CacheSize,
			CompressionLevel:   options.CompressionLevel,
			CompressionEnabled: options.Compression,
		})
	case BackendBolt:
		b, err = backend.OpenBolt(expandPath(path))
	default:
		return nil, fmt.Errorf("castore: unknown backend %q", options.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("castore: open %s backend: %w", options.Backend, err)
	}

	return newStore(b, options), nil
}

func newStore(b backend.Backend, options *Options) *Store {
	observer := options.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		records:   b,
		sizeLimit: options.SizeLimit,
		observer:  observer,
		logger:    logger,
		opts:      options,
	}
}

// SizeLimit returns the payload ceiling in bytes.
func (s *Store) SizeLimit() int { return s.sizeLimit }

// StoreFile stores payload under its content digest and returns the digest.
// It fails with a *PayloadTooLargeError when payload exceeds the size limit
// and with ErrDuplicateContent when the same bytes are already stored, under
// any name.
func (s *Store) StoreFile(payload []byte, name string) (Digest, error) {
	if len(payload) > s.sizeLimit {
		return "", &PayloadTooLargeError{Size: len(payload), Limit: s.sizeLimit}
	}

	hash := Sum(payload)

	if err := s.insert(hash, ContentRecord{Name: name, Payload: payload}); err != nil {
		return "", err
	}

	s.observer.Observe(Event{Kind: EventStored, Hash: hash, Name: name})
	return hash, nil
}

func (s *Store) insert(hash Digest, rec ContentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	exists, err := s.records.Has(string(hash))
	if err != nil {
		return fmt.Errorf("castore: lookup %s: %w", hash, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateContent, hash)
	}

	if err := s.records.Put(string(hash), rec); err != nil {
		if errors.Is(err, backend.ErrExists) {
			return fmt.Errorf("%w: %s", ErrDuplicateContent, hash)
		}
		return fmt.Errorf("castore: store %s: %w", hash, err)
	}
	return nil
}

// GetFile returns the name and a copy of the payload stored under hash.
// Hashes are matched case-insensitively; anything that is not a stored
// digest fails with ErrNotFound.
func (s *Store) GetFile(hash Digest) (string, []byte, error) {
	key, ok := ParseDigest(string(hash))
	if !ok {
		return "", nil, fmt.Errorf("%w: malformed digest %q", ErrNotFound, hash)
	}

	rec, err := s.lookup(key)
	if err != nil {
		return "", nil, err
	}

	s.observer.Observe(Event{Kind: EventRetrieved, Hash: key, Name: rec.Name})
	return rec.Name, rec.Payload, nil
}

func (s *Store) lookup(key Digest) (ContentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ContentRecord{}, ErrClosed
	}

	rec, err := s.records.Get(string(key))
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return ContentRecord{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return ContentRecord{}, fmt.Errorf("castore: load %s: %w", key, err)
	}
	return rec, nil
}

// Close releases the backend. Further operations fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.records.Close()
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
