package castore

import (
	"log/slog"

	"github.com/aweris/castore/internal/backend"
	"github.com/aweris/castore/internal/remote"
)

// DefaultSizeLimit is the default payload ceiling in bytes.
const DefaultSizeLimit = 500_000

// Backend kinds accepted by WithBackend.
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendBolt   = "bolt"
)

// Authenticator provides credentials for remote registries.
type Authenticator = remote.Authenticator

// BasicAuthenticator returns fixed credentials for every registry.
type BasicAuthenticator = remote.BasicAuthenticator

// Options configures a Store.
type Options struct {
	SizeLimit        int
	Observer         Observer
	Logger           *slog.Logger
	Backend          string
	Compression      bool
	CompressionLevel int
	CacheSize        int
	Auth             Authenticator
	Concurrency      int
}

// Option is a functional option for configuring New and Open.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		SizeLimit:        DefaultSizeLimit,
		Backend:          BackendBolt,
		Compression:      true,
		CompressionLevel: 2,
		CacheSize:        backend.DefaultCacheSize,
		Concurrency:      remote.DefaultConcurrency,
	}
}

// WithSizeLimit sets the payload ceiling in bytes. Non-positive values are ignored.
func WithSizeLimit(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.SizeLimit = n
		}
	}
}

// WithObserver sets the observer notified of successful operations.
func WithObserver(obs Observer) Option {
	return func(o *Options) { o.Observer = obs }
}

// WithLogger sets a logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithBackend selects the durable backend used by Open.
func WithBackend(kind string) Option {
	return func(o *Options) { o.Backend = kind }
}

// WithCompression sets the zstd level for the local backend (1 fastest,
// 3 best). A level of zero disables compression.
func WithCompression(level int) Option {
	return func(o *Options) {
		o.Compression = level > 0
		o.CompressionLevel = level
	}
}

// WithCacheSize sets how many records the local backend keeps in memory.
func WithCacheSize(n int) Option {
	return func(o *Options) { o.CacheSize = n }
}

// WithAuth sets custom registry authentication for Push and Pull.
func WithAuth(auth Authenticator) Option {
	return func(o *Options) { o.Auth = auth }
}

// WithConcurrency sets the number of parallel operations for push/pull.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}
