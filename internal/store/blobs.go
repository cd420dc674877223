package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mikaelweill/audio-guide-sub001/internal/domain"
)

// PutBlob stores or overwrites a binary payload under its stable cache key.
func (db *DB) PutBlob(ctx context.Context, cacheKey string, data []byte) error {
	ctx, cancel := db.withWatchdog(ctx)
	defer cancel()

	_, err := db.ExecContext(ctx, `
		INSERT INTO blobs (cache_key, data, timestamp) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET data = excluded.data, timestamp = excluded.timestamp
	`, cacheKey, data, time.Now())
	return classify(err, domain.ErrStorageWrite)
}

// GetBlob returns the stored payload, or nil if absent. "Not found" is
// never an error.
func (db *DB) GetBlob(ctx context.Context, cacheKey string) ([]byte, error) {
	ctx, cancel := db.withWatchdog(ctx)
	defer cancel()

	var row domain.CachedResource
	err := db.GetContext(ctx, &row, "SELECT cache_key, data FROM blobs WHERE cache_key = ?", cacheKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, domain.ErrStorageRead)
	}
	return row.Blob, nil
}

// DeleteBlob is idempotent; deleting a non-existent key is not an error.
func (db *DB) DeleteBlob(ctx context.Context, cacheKey string) error {
	ctx, cancel := db.withWatchdog(ctx)
	defer cancel()

	_, err := db.ExecContext(ctx, "DELETE FROM blobs WHERE cache_key = ?", cacheKey)
	return classify(err, domain.ErrStorageWrite)
}

// ListBlobKeys returns every stored cache key. Used by the orphan sweep.
func (db *DB) ListBlobKeys(ctx context.Context) ([]string, error) {
	ctx, cancel := db.withWatchdog(ctx)
	defer cancel()

	var keys []string
	err := db.SelectContext(ctx, &keys, "SELECT cache_key FROM blobs ORDER BY cache_key")
	if err != nil {
		return nil, classify(err, domain.ErrStorageRead)
	}
	return keys, nil
}

// BlobStats returns the row count and total payload bytes.
func (db *DB) BlobStats(ctx context.Context) (int, int64, error) {
	ctx, cancel := db.withWatchdog(ctx)
	defer cancel()

	var stats struct {
		Count int   `db:"count"`
		Bytes int64 `db:"bytes"`
	}
	err := db.GetContext(ctx, &stats, "SELECT COUNT(*) AS count, COALESCE(SUM(LENGTH(data)), 0) AS bytes FROM blobs")
	if err != nil {
		return 0, 0, classify(err, domain.ErrStorageRead)
	}
	return stats.Count, stats.Bytes, nil
}
