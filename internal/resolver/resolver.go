// Package resolver produces a usable handle for a requested resource given
// current connectivity: the live remote URL when online, a cached or
// blob-backed local handle when offline.
package resolver

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sync"

	"github.com/mikaelweill/audio-guide-sub001/internal/domain"
	"github.com/mikaelweill/audio-guide-sub001/internal/logger"
	"github.com/mikaelweill/audio-guide-sub001/internal/storage"
)

// NetworkStatus is the live online/offline signal, read at decision points.
type NetworkStatus interface {
	Online() bool
}

// CacheProbe is the read side of a resource cache.
type CacheProbe interface {
	Available() bool
	Match(cacheKey string) (*domain.Resource, error)
}

// BlobReader is the read side of the blob store.
type BlobReader interface {
	GetBlob(ctx context.Context, cacheKey string) ([]byte, error)
}

// Resolver resolves resources to playable handles. Offline hits are
// materialized as temporary files tracked in a process-wide registry keyed
// by cacheKey, so handles can be revoked instead of leaking. The registry
// is per-process; nothing survives a restart.
type Resolver struct {
	net    NetworkStatus
	blobs  BlobReader
	caches []CacheProbe
	dir    string
	log    *logger.Logger

	mu      sync.Mutex
	handles map[string]string
}

// New creates a resolver materializing handles under dir. Additional cache
// instances (a secondary cache used in constrained environments) can be
// added with AddFallbackCache.
func New(net NetworkStatus, blobs BlobReader, primary CacheProbe, dir string, log *logger.Logger) (*Resolver, error) {
	if err := storage.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create handle dir: %w", err)
	}
	if log == nil {
		log = logger.Default()
	}

	r := &Resolver{
		net:     net,
		blobs:   blobs,
		dir:     dir,
		log:     log.WithComponent("resolver"),
		handles: make(map[string]string),
	}
	if primary != nil {
		r.caches = append(r.caches, primary)
	}
	return r, nil
}

// AddFallbackCache registers a secondary cache probed after the primary.
func (r *Resolver) AddFallbackCache(c CacheProbe) {
	if c != nil {
		r.caches = append(r.caches, c)
	}
}

// ResolveAudio returns a playable handle for one stop's audio variant.
func (r *Resolver) ResolveAudio(ctx context.Context, poiID string, variant domain.AudioVariant, remoteURL string) (string, error) {
	return r.resolve(ctx, domain.AudioCacheKey(poiID, variant), remoteURL)
}

// ResolveImage returns a usable handle for an image.
func (r *Resolver) ResolveImage(ctx context.Context, imageURL string) (string, error) {
	return r.resolve(ctx, domain.ImageCacheKey(imageURL), imageURL)
}

func (r *Resolver) resolve(ctx context.Context, cacheKey, remoteURL string) (string, error) {
	// Online: the remote URL is used directly and immediately, so a
	// short-lived signed URL is fine. No caching interference.
	if r.net.Online() && remoteURL != "" {
		return remoteURL, nil
	}

	// An already materialized handle is reused, not rewritten.
	r.mu.Lock()
	if handle, ok := r.handles[cacheKey]; ok {
		r.mu.Unlock()
		return handle, nil
	}
	r.mu.Unlock()

	// Resource Cache first, blob store as the backstop.
	for _, c := range r.caches {
		if !c.Available() {
			continue
		}
		res, err := c.Match(cacheKey)
		if err != nil {
			r.log.Warn("Cache probe failed, falling through", "cache_key", cacheKey, "error", err)
			continue
		}
		if res != nil {
			return r.materialize(cacheKey, res.Body, res.ContentType())
		}
	}

	blob, err := r.blobs.GetBlob(ctx, cacheKey)
	if err != nil {
		r.log.Warn("Blob probe failed", "cache_key", cacheKey, "error", err)
	}
	if blob != nil {
		return r.materialize(cacheKey, blob, "")
	}

	return "", fmt.Errorf("%w: %s", domain.ErrResourceUnavailableOffline, cacheKey)
}

// materialize writes the payload to a temporary file and registers the
// handle under its cache key.
func (r *Resolver) materialize(cacheKey string, data []byte, contentType string) (string, error) {
	name := storage.Sanitize(cacheKey)
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		name += exts[0]
	}
	path := filepath.Join(r.dir, name)

	if err := storage.WriteFile(path, data); err != nil {
		return "", fmt.Errorf("failed to materialize %s: %w", cacheKey, err)
	}

	r.mu.Lock()
	r.handles[cacheKey] = path
	r.mu.Unlock()

	return path, nil
}

// Revoke removes one materialized handle and its backing file.
func (r *Resolver) Revoke(cacheKey string) {
	r.mu.Lock()
	path, ok := r.handles[cacheKey]
	delete(r.handles, cacheKey)
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := storage.RemoveFile(path); err != nil && !storage.IsNotExist(err) {
		r.log.Warn("Failed to remove handle file", "cache_key", cacheKey, "error", err)
	}
}

// RevokeAll removes every materialized handle.
func (r *Resolver) RevokeAll() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]string)
	r.mu.Unlock()

	for cacheKey, path := range handles {
		if err := storage.RemoveFile(path); err != nil && !storage.IsNotExist(err) {
			r.log.Warn("Failed to remove handle file", "cache_key", cacheKey, "error", err)
		}
	}
}

// HandleCount returns the number of live handles.
func (r *Resolver) HandleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
