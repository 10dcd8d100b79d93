package backend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketRecords = []byte("records")

// Bolt stores records in a single bbolt file. Write-once is enforced inside
// the update transaction, so processes sharing the file cannot both insert
// the same key.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens or creates the database at path. The parent directory is
// created if it does not exist.
func OpenBolt(path string) (*Bolt, error) {
	if path == "" {
		return nil, errors.New("backend: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket %q: %w", bucketRecords, err)
	}

	return &Bolt{db: db}, nil
}

// Get retrieves a record by key.
func (b *Bolt) Get(key string) (Record, error) {
	var rec Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		// Decode copies, data is only valid inside the transaction.
		var err error
		rec, err = Decode(data)
		return err
	})
	return rec, err
}

// Put stores a record. It fails with ErrExists if key is already stored.
func (b *Bolt) Put(key string, rec Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket.Get([]byte(key)) != nil {
			return ErrExists
		}
		if err := bucket.Put([]byte(key), Encode(rec)); err != nil {
			return fmt.Errorf("put record: %w", err)
		}
		return nil
	})
}

// Has checks if a record exists.
func (b *Bolt) Has(key string) (bool, error) {
	var ok bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		ok = tx.Bucket(bucketRecords).Get([]byte(key)) != nil
		return nil
	})
	return ok, err
}

// Range calls fn for every record in key order until fn returns false.
func (b *Bolt) Range(fn func(key string, rec Record) bool) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRecords).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			rec, err := Decode(v)
			if err != nil {
				return fmt.Errorf("record %s: %w", k, err)
			}
			if !fn(string(k), rec) {
				return nil
			}
		}
		return nil
	})
}

// Close closes the database file.
func (b *Bolt) Close() error { return b.db.Close() }
