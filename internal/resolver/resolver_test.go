package resolver

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikaelweill/audio-guide-sub001/internal/domain"
)

type fakeNet struct{ online bool }

func (f *fakeNet) Online() bool { return f.online }

type fakeCache struct {
	entries   map[string]*domain.Resource
	available bool
}

func (f *fakeCache) Available() bool { return f.available }

func (f *fakeCache) Match(key string) (*domain.Resource, error) {
	return f.entries[key], nil
}

type fakeBlobs struct {
	blobs map[string][]byte
}

func (f *fakeBlobs) GetBlob(ctx context.Context, key string) ([]byte, error) {
	return f.blobs[key], nil
}

func setupResolver(t *testing.T, online bool) (*Resolver, *fakeCache, *fakeBlobs) {
	t.Helper()
	cache := &fakeCache{entries: make(map[string]*domain.Resource), available: true}
	blobs := &fakeBlobs{blobs: make(map[string][]byte)}

	r, err := New(&fakeNet{online: online}, blobs, cache, t.TempDir(), nil)
	require.NoError(t, err)
	return r, cache, blobs
}

func TestResolve_OnlineReturnsRemoteURL(t *testing.T) {
	r, _, _ := setupResolver(t, true)

	// Signed URLs pass through untouched while online.
	url := "https://audio.example.com/p1-brief.mp3?sig=abc"
	handle, err := r.ResolveAudio(context.Background(), "p1", domain.VariantBrief, url)
	require.NoError(t, err)
	assert.Equal(t, url, handle)
	assert.Equal(t, 0, r.HandleCount())
}

func TestResolve_OfflineCacheHit(t *testing.T) {
	r, cache, _ := setupResolver(t, false)
	cache.entries["audio-p1-brief"] = &domain.Resource{
		Status: 200,
		Header: http.Header{"Content-Type": []string{"audio/mpeg"}},
		Body:   []byte("mp3 bytes"),
	}

	handle, err := r.ResolveAudio(context.Background(), "p1", domain.VariantBrief, "https://audio.example.com/x.mp3")
	require.NoError(t, err)

	data, err := os.ReadFile(handle)
	require.NoError(t, err)
	assert.Equal(t, "mp3 bytes", string(data))
	assert.Equal(t, 1, r.HandleCount())
}

func TestResolve_OfflineBlobFallback(t *testing.T) {
	// Resource exists only in the blob store: the resolver must still
	// succeed after the cache misses.
	r, _, blobs := setupResolver(t, false)
	blobs.blobs["audio-p1-brief"] = []byte("blob bytes")

	handle, err := r.ResolveAudio(context.Background(), "p1", domain.VariantBrief, "")
	require.NoError(t, err)

	data, err := os.ReadFile(handle)
	require.NoError(t, err)
	assert.Equal(t, "blob bytes", string(data))
}

func TestResolve_OfflineUnavailableCacheFallsThrough(t *testing.T) {
	r, cache, blobs := setupResolver(t, false)
	cache.available = false
	blobs.blobs["audio-p1-brief"] = []byte("blob bytes")

	handle, err := r.ResolveAudio(context.Background(), "p1", domain.VariantBrief, "")
	require.NoError(t, err)
	assert.NotEmpty(t, handle)
}

func TestResolve_OfflineMissing(t *testing.T) {
	r, _, _ := setupResolver(t, false)

	_, err := r.ResolveAudio(context.Background(), "p1", domain.VariantBrief, "")
	require.ErrorIs(t, err, domain.ErrResourceUnavailableOffline)
}

func TestResolve_FallbackCacheProbed(t *testing.T) {
	r, cache, _ := setupResolver(t, false)
	cache.available = false

	secondary := &fakeCache{entries: map[string]*domain.Resource{
		"image-eiffel.jpg": {Status: 200, Body: []byte("jpg")},
	}, available: true}
	r.AddFallbackCache(secondary)

	handle, err := r.ResolveImage(context.Background(), "https://cdn.example.com/img/eiffel.jpg?sig=x")
	require.NoError(t, err)
	assert.NotEmpty(t, handle)
}

func TestResolve_HandleReuseAndRevoke(t *testing.T) {
	r, _, blobs := setupResolver(t, false)
	blobs.blobs["audio-p1-brief"] = []byte("blob bytes")

	h1, err := r.ResolveAudio(context.Background(), "p1", domain.VariantBrief, "")
	require.NoError(t, err)
	h2, err := r.ResolveAudio(context.Background(), "p1", domain.VariantBrief, "")
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "repeated resolution must reuse the handle")
	assert.Equal(t, 1, r.HandleCount())

	r.Revoke("audio-p1-brief")
	assert.Equal(t, 0, r.HandleCount())
	_, statErr := os.Stat(h1)
	assert.True(t, os.IsNotExist(statErr), "revoked handle file must be removed")

	// Revoking an unknown key is a no-op.
	r.Revoke("audio-ghost-brief")
}

func TestResolve_RevokeAll(t *testing.T) {
	r, _, blobs := setupResolver(t, false)
	blobs.blobs["audio-p1-brief"] = []byte("a")
	blobs.blobs["audio-p2-brief"] = []byte("b")

	h1, err := r.ResolveAudio(context.Background(), "p1", domain.VariantBrief, "")
	require.NoError(t, err)
	h2, err := r.ResolveAudio(context.Background(), "p2", domain.VariantBrief, "")
	require.NoError(t, err)

	r.RevokeAll()
	assert.Equal(t, 0, r.HandleCount())
	for _, h := range []string{h1, h2} {
		_, statErr := os.Stat(h)
		assert.True(t, os.IsNotExist(statErr))
	}
}
