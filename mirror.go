package castore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aweris/castore/internal/backend"
	"github.com/aweris/castore/internal/remote"
)

// PullResult summarises a Pull.
type PullResult struct {
	Imported int // records inserted
	Skipped  int // records already present
	Rejected int // records failing digest or size checks
}

// Push uploads every record to the OCI image ref (e.g., "ttl.sh/castore/files:main"),
// replacing what the tag held.
func (s *Store) Push(ctx context.Context, ref string) error {
	r, err := s.mirror(ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	// Backends are write-once and safe for concurrent use, so the walk runs
	// without the store lock and StoreFile/GetFile proceed meanwhile.
	records := make(map[string]backend.Record)
	err = s.records.Range(func(key string, rec backend.Record) bool {
		records[key] = rec
		return true
	})
	if err != nil {
		return fmt.Errorf("castore: collect records: %w", err)
	}

	if err := r.Push(ctx, records); err != nil {
		return fmt.Errorf("castore: push to %s: %w", r, err)
	}
	return nil
}

// Pull imports the records held by the OCI image ref. Records already present
// are left untouched, and records whose digest does not match their payload
// or that exceed this store's size limit are rejected. Pull does not notify
// the observer.
func (s *Store) Pull(ctx context.Context, ref string) (PullResult, error) {
	var result PullResult

	r, err := s.mirror(ref)
	if err != nil {
		return result, err
	}

	records, err := r.Pull(ctx)
	if err != nil {
		return result, fmt.Errorf("castore: pull from %s: %w", r, err)
	}

	for key, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if Sum(rec.Payload) != Digest(key) {
			s.logger.Warn("rejecting record with mismatched digest", "hash", key, "name", rec.Name)
			result.Rejected++
			continue
		}
		if len(rec.Payload) > s.sizeLimit {
			s.logger.Warn("rejecting record over size limit", "hash", key, "size", len(rec.Payload), "limit", s.sizeLimit)
			result.Rejected++
			continue
		}

		err := s.insert(Digest(key), rec)
		switch {
		case err == nil:
			result.Imported++
		case errors.Is(err, ErrDuplicateContent):
			result.Skipped++
		default:
			return result, err
		}
	}

	s.logger.Info("pull complete", "ref", ref, "imported", result.Imported, "skipped", result.Skipped, "rejected", result.Rejected)
	return result, nil
}

func (s *Store) mirror(ref string) (*remote.OCIRemote, error) {
	r, err := remote.NewOCIRemote(ref, s.opts.Auth, s.logger)
	if err != nil {
		return nil, fmt.Errorf("castore: %w", err)
	}
	r.SetConcurrency(s.opts.Concurrency)
	return r, nil
}
