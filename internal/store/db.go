package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mikaelweill/audio-guide-sub001/internal/constants"
	"github.com/mikaelweill/audio-guide-sub001/internal/domain"
	"github.com/mikaelweill/audio-guide-sub001/internal/logger"
)

type DB struct {
	*sqlx.DB

	// opTimeout bounds every storage call independently of the engine's
	// busy timeout. Storage engines can silently hang under certain
	// concurrency or corruption conditions; a hung operation must reject
	// rather than block the caller forever.
	opTimeout time.Duration
	log       *logger.Logger
}

func NewSQLiteDB(dsn string) (*DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// Set pragmas for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	wrapped := &DB{
		DB:        db,
		opTimeout: constants.StorageOpTimeout,
		log:       logger.Default().WithComponent("store"),
	}

	if err := wrapped.ensureSchema(); err != nil {
		return nil, err
	}

	return wrapped, nil
}

// ensureSchema applies the schema and handles version mismatches. There is
// no migration path: an incompatible stored version forces a clean wipe and
// the offline set is rebuilt by re-downloading.
func (db *DB) ensureSchema() error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	var version int
	err := db.Get(&version, "SELECT version FROM schema_info LIMIT 1")
	if err == sql.ErrNoRows {
		_, err = db.Exec("INSERT INTO schema_info (version) VALUES (?)", constants.SchemaVersion)
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version != constants.SchemaVersion {
		if _, err := db.Exec("DELETE FROM tours; DELETE FROM blobs; DELETE FROM schema_info"); err != nil {
			return fmt.Errorf("failed to wipe stale schema: %w", err)
		}
		if _, err := db.Exec("INSERT INTO schema_info (version) VALUES (?)", constants.SchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}

	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// withWatchdog derives the bounded context every storage operation runs
// under.
func (db *DB) withWatchdog(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.opTimeout)
}

// classify maps low-level errors onto the storage error taxonomy so callers
// can match with errors.Is.
func classify(err error, kind error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrStorageTimeout, err)
	}
	return fmt.Errorf("%w: %v", kind, err)
}
