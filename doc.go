// Package castore provides a write-once content-addressed file store.
//
// Files are stored under the BLAKE2b-256 digest of their bytes, rendered as
// lowercase hex. A digest can be stored once: submitting the same bytes again,
// under any name, is an error. Payloads above the store's size limit are
// rejected.
//
// Basic usage (in memory):
//
//	s := castore.New()
//
//	hash, err := s.StoreFile(data, "icon.svg")
//	name, data, err := s.GetFile(hash)
//
//	// Same bytes again
//	_, err = s.StoreFile(data, "copy.svg")
//	errors.Is(err, castore.ErrDuplicateContent) // true
//
//	// Too large
//	var tooLarge *castore.PayloadTooLargeError
//	errors.As(err, &tooLarge) // tooLarge.Limit holds the ceiling
//
// Durable stores and observers:
//
//	s, _ := castore.Open("~/.local/share/castore/castore.db",
//	    castore.WithSizeLimit(512_000),
//	    castore.WithObserver(castore.LogObserver(slog.Default())),
//	)
//	defer s.Close()
//
// With remote mirroring:
//
//	s.Push(ctx, "ttl.sh/myorg/files:main")
//	res, _ := other.Pull(ctx, "ttl.sh/myorg/files:main")
//	fmt.Println(res.Imported, "new files")
package castore
