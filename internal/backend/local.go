package backend

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aweris/castore/internal/compression"
)

// Local stores one file per record in a sharded directory.
//
// Storage layout:
//
//	dir/
//	  objects/
//	    ab/cd123...  (marker byte + zstd or raw record frame)
//	  tmp/
//
// Objects are written to tmp/ and hard-linked into place, so a reader never
// sees a partial object and a second writer loses with ErrExists.
type Local struct {
	dir        string
	cache      *Cache
	compressor *compression.Compressor
}

// LocalOptions configures a Local backend.
type LocalOptions struct {
	CacheSize          int
	CompressionLevel   int
	CompressionEnabled bool
}

// NewLocal creates a Local backend rooted at dir, creating it if needed.
func NewLocal(dir string, opts LocalOptions) (*Local, error) {
	if dir == "" {
		return nil, errors.New("backend: empty directory")
	}
	for _, sub := range []string{"objects", "tmp"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", sub, err)
		}
	}

	compressor, err := compression.NewCompressor(opts.CompressionLevel, opts.CompressionEnabled)
	if err != nil {
		return nil, fmt.Errorf("create compressor: %w", err)
	}

	cache, err := NewCache(opts.CacheSize)
	if err != nil {
		compressor.Close()
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &Local{
		dir:        dir,
		cache:      cache,
		compressor: compressor,
	}, nil
}

// Get retrieves a record by key, consulting the read cache first.
func (l *Local) Get(key string) (Record, error) {
	if rec, ok := l.cache.Get(key); ok {
		return rec, nil
	}

	body, err := os.ReadFile(l.objectPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("read object: %w", err)
	}

	rec, err := l.decode(body)
	if err != nil {
		return Record{}, fmt.Errorf("object %s: %w", key, err)
	}

	l.cache.Add(key, rec)
	return rec, nil
}

// Put writes a record. It fails with ErrExists if key is already stored.
func (l *Local) Put(key string, rec Record) error {
	path := l.objectPath(key)
	if _, err := os.Stat(path); err == nil {
		return ErrExists
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create shard directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Join(l.dir, "tmp"), "obj-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(l.compressor.Compress(Encode(rec))); err != nil {
		tmp.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}

	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("publish object: %w", err)
	}

	l.cache.Add(key, rec)
	return nil
}

// Has checks if a record exists.
func (l *Local) Has(key string) (bool, error) {
	if l.cache.Has(key) {
		return true, nil
	}
	_, err := os.Stat(l.objectPath(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Range calls fn for every stored record until fn returns false.
// Files under objects/ that Put could not have written are ignored.
func (l *Local) Range(fn func(key string, rec Record) bool) error {
	root := filepath.Join(l.dir, "objects")
	stop := errors.New("stop")

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := strings.ReplaceAll(rel, string(filepath.Separator), "")
		if !isHexKey(key) || l.objectPath(key) != path {
			// Not written by Put (editor swap files, .DS_Store, ...).
			return nil
		}

		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read object: %w", err)
		}
		rec, err := l.decode(body)
		if err != nil {
			return fmt.Errorf("object %s: %w", key, err)
		}
		if !fn(key, rec) {
			return stop
		}
		return nil
	})
	if errors.Is(err, stop) {
		return nil
	}
	return err
}

// Close drops the read cache and releases the compressor.
func (l *Local) Close() error {
	l.cache.Purge()
	return l.compressor.Close()
}

func (l *Local) decode(body []byte) (Record, error) {
	frame, err := l.compressor.Decompress(body)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return Decode(frame)
}

func isHexKey(key string) bool {
	if key == "" {
		return false
	}
	for _, c := range key {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// objectPath returns the filesystem path for a key.
// Git-style sharding: objects/ab/cd123...
func (l *Local) objectPath(key string) string {
	if len(key) < 3 {
		return filepath.Join(l.dir, "objects", key)
	}
	return filepath.Join(l.dir, "objects", key[:2], key[2:])
}
