package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/klauspost/compress/zstd"
	"github.com/sourcegraph/conc/pool"

	"github.com/aweris/castore/internal/backend"
)

type OCIRemote struct {
	ref         name.Reference
	auth        Authenticator
	concurrency int
	logger      *slog.Logger
	retryDelay  time.Duration
}

// NewOCIRemote creates a remote from a standard Docker ref (e.g., "ttl.sh/castore/files:main").
func NewOCIRemote(imageRef string, auth Authenticator, logger *slog.Logger) (*OCIRemote, error) {
	ref, err := name.ParseReference(imageRef, name.WithDefaultTag("latest"))
	if err != nil {
		return nil, fmt.Errorf("invalid image ref %q: %w", imageRef, err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &OCIRemote{
		ref:         ref,
		auth:        auth,
		concurrency: DefaultConcurrency,
		logger:      logger.With("ref", ref.String()),
		retryDelay:  500 * time.Millisecond,
	}, nil
}

// SetConcurrency sets the number of parallel operations for push/pull.
func (r *OCIRemote) SetConcurrency(n int) {
	if n > 0 {
		r.concurrency = n
	}
}

func (r *OCIRemote) String() string   { return r.ref.String() }
func (r *OCIRemote) Registry() string { return r.ref.Context().RegistryStr() }

// recordLayer implements v1.Layer with zstd compression for remote transfer.
type recordLayer struct {
	compressed   []byte
	uncompressed []byte
}

var layerEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
})

func newRecordLayer(data []byte) (*recordLayer, error) {
	enc, err := layerEncoder()
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &recordLayer{
		compressed:   enc.EncodeAll(data, nil),
		uncompressed: data,
	}, nil
}

func (l *recordLayer) Digest() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.compressed))
	return h, err
}

func (l *recordLayer) DiffID() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.uncompressed))
	return h, err
}

func (l *recordLayer) Compressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.compressed)), nil
}
func (l *recordLayer) Uncompressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.uncompressed)), nil
}
func (l *recordLayer) Size() (int64, error)                { return int64(len(l.compressed)), nil }
func (l *recordLayer) MediaType() (types.MediaType, error) { return types.OCILayerZStd, nil }

// Push uploads every record as one image, replacing whatever the tag held.
func (r *OCIRemote) Push(ctx context.Context, records map[string]backend.Record) error {
	byPrefix := GroupByPrefix(records)
	plan := BuildLayerPlan(CalculatePrefixSizes(byPrefix))

	r.logger.Debug("packing records", "records", len(records), "prefixes", len(byPrefix), "layers", len(plan))

	layers := make([]v1.Layer, 0, len(plan))
	var totalRaw, totalCompressed int64
	for _, prefixGroup := range plan {
		data, err := PackLayer(CollectPrefixRecords(prefixGroup, byPrefix))
		if err != nil {
			return err
		}
		layer, err := newRecordLayer(data)
		if err != nil {
			return err
		}
		totalRaw += int64(len(data))
		totalCompressed += int64(len(layer.compressed))
		layers = append(layers, layer)
	}

	img, err := r.buildImage(layers, len(records))
	if err != nil {
		return fmt.Errorf("build image: %w", err)
	}

	r.logger.Info("uploading layers", "layers", len(layers), "raw_bytes", totalRaw, "compressed_bytes", totalCompressed)

	if err := r.pushImage(ctx, img); err != nil {
		return fmt.Errorf("push image: %w", err)
	}
	return nil
}

func (r *OCIRemote) buildImage(layers []v1.Layer, count int) (v1.Image, error) {
	img := mutate.MediaType(empty.Image, types.OCIManifestSchema1)
	img = mutate.ConfigMediaType(img, types.OCIConfigJSON)

	if len(layers) > 0 {
		var err error
		img, err = mutate.AppendLayers(img, layers...)
		if err != nil {
			return nil, err
		}
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, err
	}

	cfg = cfg.DeepCopy()
	cfg.Config.Labels = map[string]string{
		labelRecords: strconv.Itoa(count),
		labelFormat:  layerFormat,
	}

	return mutate.ConfigFile(img, cfg)
}

func (r *OCIRemote) pushImage(ctx context.Context, img v1.Image) error {
	options := append(r.remoteOptions(ctx), remote.WithJobs(r.concurrency))
	_, err := retry(ctx, 3, r.retryDelay, func() (struct{}, error) {
		return struct{}{}, remote.Write(r.ref, img, options...)
	})
	return err
}

// Pull downloads every record held by the tag. Layers are fetched in parallel.
func (r *OCIRemote) Pull(ctx context.Context) (map[string]backend.Record, error) {
	img, err := retry(ctx, 3, r.retryDelay, func() (v1.Image, error) {
		return remote.Image(r.ref, r.remoteOptions(ctx)...)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}

	if format := cfg.Config.Labels[labelFormat]; format != layerFormat {
		return nil, fmt.Errorf("unsupported record format %q", format)
	}
	want, err := strconv.Atoi(cfg.Config.Labels[labelRecords])
	if err != nil {
		return nil, fmt.Errorf("parse %s label: %w", labelRecords, err)
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, fmt.Errorf("get layers: %w", err)
	}

	r.logger.Debug("downloading layers", "layers", len(layers))

	var mu sync.Mutex
	records := make(map[string]backend.Record, want)

	p := pool.New().WithMaxGoroutines(r.concurrency).WithContext(ctx).WithCancelOnError()

	for _, layer := range layers {
		p.Go(func(ctx context.Context) error {
			rc, err := layer.Uncompressed()
			if err != nil {
				return fmt.Errorf("read layer: %w", err)
			}
			data, err := io.ReadAll(rc)
			if cerr := rc.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("read layer: %w", err)
			}

			unpacked, err := UnpackLayer(data)
			if err != nil {
				return fmt.Errorf("unpack layer: %w", err)
			}

			mu.Lock()
			for k, v := range unpacked {
				records[k] = v
			}
			mu.Unlock()
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	if len(records) != want {
		return nil, fmt.Errorf("image declares %d records, layers hold %d", want, len(records))
	}

	r.logger.Info("pulled records", "records", len(records))
	return records, nil
}

func (r *OCIRemote) remoteOptions(ctx context.Context) []remote.Option {
	opts := []remote.Option{remote.WithContext(ctx)}
	if a := authenticatorFor(r.auth, r.Registry()); a != nil {
		return append(opts, remote.WithAuth(a))
	}
	return append(opts, remote.WithAuthFromKeychain(authn.DefaultKeychain))
}

func retry[T any](ctx context.Context, maxAttempts int, base time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := range maxAttempts {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i < maxAttempts-1 {
			delay := time.Duration(1<<i) * base
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}
