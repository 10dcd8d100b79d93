package castore_test

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-containerregistry/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/castore"
	"github.com/aweris/castore/internal/backend"
	"github.com/aweris/castore/internal/remote"
)

func registryHost(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(registry.New(registry.Logger(log.New(io.Discard, "", 0))))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return u.Host
}

func TestStore_PushPull(t *testing.T) {
	ref := registryHost(t) + "/castore/mirror:main"
	ctx := context.Background()

	src := castore.New()
	h1, err := src.StoreFile([]byte("one"), "one.txt")
	require.NoError(t, err)
	h2, err := src.StoreFile([]byte("two"), "two.txt")
	require.NoError(t, err)
	require.NoError(t, src.Push(ctx, ref))

	obs := &recorder{}
	dst, err := castore.Open(filepath.Join(t.TempDir(), "dst.db"), castore.WithObserver(obs))
	require.NoError(t, err)
	defer dst.Close()

	// Pre-existing record with a different name must survive the pull.
	_, err = dst.StoreFile([]byte("two"), "local-two.txt")
	require.NoError(t, err)

	res, err := dst.Pull(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, castore.PullResult{Imported: 1, Skipped: 1}, res)

	gotName, gotPayload, err := dst.GetFile(h1)
	require.NoError(t, err)
	assert.Equal(t, "one.txt", gotName)
	assert.Equal(t, []byte("one"), gotPayload)

	gotName, _, err = dst.GetFile(h2)
	require.NoError(t, err)
	assert.Equal(t, "local-two.txt", gotName)

	// One stored event from the local StoreFile, none from the pull, two retrieves.
	kinds := []castore.EventKind{}
	for _, e := range obs.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []castore.EventKind{castore.EventStored, castore.EventRetrieved, castore.EventRetrieved}, kinds)
}

func TestStore_PullRejectsOversized(t *testing.T) {
	ref := registryHost(t) + "/castore/big:latest"
	ctx := context.Background()

	src := castore.New()
	_, err := src.StoreFile(make([]byte, 100), "big")
	require.NoError(t, err)
	_, err = src.StoreFile([]byte("small"), "small")
	require.NoError(t, err)
	require.NoError(t, src.Push(ctx, ref))

	dst := castore.New(castore.WithSizeLimit(50))
	res, err := dst.Pull(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, castore.PullResult{Imported: 1, Rejected: 1}, res)
}

func TestStore_PullRejectsForgedDigest(t *testing.T) {
	ref := registryHost(t) + "/castore/forged:latest"
	ctx := context.Background()

	good := castore.Sum([]byte("good"))
	forged := castore.Sum([]byte("claimed"))

	r, err := remote.NewOCIRemote(ref, nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.Push(ctx, map[string]backend.Record{
		good.String():   {Name: "good.txt", Payload: []byte("good")},
		forged.String(): {Name: "forged.txt", Payload: []byte("not claimed")},
	}))

	obs := &recorder{}
	dst := castore.New(castore.WithObserver(obs))
	res, err := dst.Pull(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, castore.PullResult{Imported: 1, Rejected: 1}, res)

	_, _, err = dst.GetFile(forged)
	assert.ErrorIs(t, err, castore.ErrNotFound)

	name, payload, err := dst.GetFile(good)
	require.NoError(t, err)
	assert.Equal(t, "good.txt", name)
	assert.Equal(t, []byte("good"), payload)

	// The substituted bytes were not stored under their own digest either.
	_, _, err = dst.GetFile(castore.Sum([]byte("not claimed")))
	assert.ErrorIs(t, err, castore.ErrNotFound)
}

func TestStore_PushConcurrentWithWrites(t *testing.T) {
	ref := registryHost(t) + "/castore/busy:latest"
	ctx := context.Background()

	s, err := castore.Open(filepath.Join(t.TempDir(), "objects"), castore.WithBackend(castore.BackendLocal))
	require.NoError(t, err)
	defer s.Close()

	for i := range 20 {
		_, err := s.StoreFile([]byte("seed-"+strconv.Itoa(i)), "seed")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	var pushErr error
	go func() {
		defer wg.Done()
		pushErr = s.Push(ctx, ref)
	}()
	go func() {
		defer wg.Done()
		for i := range 20 {
			h, err := s.StoreFile([]byte("live-"+strconv.Itoa(i)), "live")
			assert.NoError(t, err)
			_, _, err = s.GetFile(h)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()
	require.NoError(t, pushErr)

	res, err := castore.New().Pull(ctx, ref)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Imported, 20)
	assert.Zero(t, res.Rejected)
}

func TestStore_PushInvalidRef(t *testing.T) {
	s := castore.New()
	assert.Error(t, s.Push(context.Background(), "NOT A REF"))

	_, err := s.Pull(context.Background(), "NOT A REF")
	assert.Error(t, err)
}

func TestStore_PushClosed(t *testing.T) {
	s := castore.New()
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Push(context.Background(), registryHost(t)+"/castore/closed"), castore.ErrClosed)
}
