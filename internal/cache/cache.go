// Package cache implements the fast-path resource cache: a key to response
// store preferred over the blob store when serving offline resources. Like
// its browser counterpart it is not guaranteed durable or even available;
// every failure here is recoverable and callers fall through to the blob
// store.
package cache

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/mikaelweill/audio-guide-sub001/internal/domain"
)

const responseKeyPrefix = "resp:"

// ResourceCache stores full responses (status, headers, body) under stable
// cache keys, never under the original fetch URL. A nil *ResourceCache is a
// valid, permanently unavailable cache.
type ResourceCache struct {
	db *badger.DB
}

// Open opens or creates the cache at dir. An open failure is not fatal to
// the application; the caller logs it and continues with a nil cache.
func Open(dir string) (*ResourceCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return &ResourceCache{db: db}, nil
}

// OpenInMemory opens a non-persistent cache. Used by tests and constrained
// environments where no cache directory is writable.
func OpenInMemory() (*ResourceCache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return &ResourceCache{db: db}, nil
}

// Available reports whether the cache can be used at all. Feature-detected
// at call time by every call site.
func (c *ResourceCache) Available() bool {
	return c != nil && c.db != nil
}

// Store saves a full response under the stable key.
func (c *ResourceCache) Store(cacheKey string, res *domain.Resource) error {
	if !c.Available() {
		return domain.ErrCacheUnavailable
	}

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(responseKeyPrefix+cacheKey), data)
	})
}

// Match returns the stored response, or nil on a miss.
func (c *ResourceCache) Match(cacheKey string) (*domain.Resource, error) {
	if !c.Available() {
		return nil, domain.ErrCacheUnavailable
	}

	var res domain.Resource
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(responseKeyPrefix + cacheKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &res)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache match: %w", err)
	}
	return &res, nil
}

// Delete removes a stored response. Idempotent.
func (c *ResourceCache) Delete(cacheKey string) error {
	if !c.Available() {
		return domain.ErrCacheUnavailable
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(responseKeyPrefix + cacheKey))
	})
}

// Close releases the underlying store. Safe on an unavailable cache.
func (c *ResourceCache) Close() error {
	if !c.Available() {
		return nil
	}
	return c.db.Close()
}
