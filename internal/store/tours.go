package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/mikaelweill/audio-guide-sub001/internal/domain"
)

type tourRow struct {
	ID             string             `db:"id"`
	Snapshot       string             `db:"snapshot"`
	DownloadedAt   sql.NullTime       `db:"downloaded_at"`
	AudioResources domain.StringSlice `db:"audio_resources"`
	ImageResources domain.StringSlice `db:"image_resources"`
}

func (r *tourRow) toDomain() (*domain.DownloadedTour, error) {
	var snapshot domain.Tour
	if err := json.Unmarshal([]byte(r.Snapshot), &snapshot); err != nil {
		return nil, fmt.Errorf("corrupt tour snapshot for %s: %w", r.ID, err)
	}

	dt := &domain.DownloadedTour{
		ID:             r.ID,
		Tour:           &snapshot,
		AudioResources: r.AudioResources,
		ImageResources: r.ImageResources,
	}
	if r.DownloadedAt.Valid {
		dt.DownloadedAt = r.DownloadedAt.Time
	}
	return dt, nil
}

// PutTour writes or overwrites a catalog row. The caller only does this
// after every resource write has been attempted: the row is the durability
// watermark for the whole download.
func (db *DB) PutTour(ctx context.Context, tour *domain.DownloadedTour) error {
	snapshot, err := json.Marshal(tour.Tour)
	if err != nil {
		return fmt.Errorf("failed to serialize tour snapshot: %w", err)
	}

	ctx, cancel := db.withWatchdog(ctx)
	defer cancel()

	_, err = db.ExecContext(ctx, `
		INSERT INTO tours (id, snapshot, downloaded_at, audio_resources, image_resources)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			snapshot = excluded.snapshot,
			downloaded_at = excluded.downloaded_at,
			audio_resources = excluded.audio_resources,
			image_resources = excluded.image_resources
	`, tour.ID, string(snapshot), tour.DownloadedAt, tour.AudioResources, tour.ImageResources)
	return classify(err, domain.ErrStorageWrite)
}

// GetTour returns the catalog row, or nil if absent. A corrupt snapshot
// reads as absent: the tour reports as not downloaded and heals itself on
// the next download's upsert.
func (db *DB) GetTour(ctx context.Context, id string) (*domain.DownloadedTour, error) {
	ctx, cancel := db.withWatchdog(ctx)
	defer cancel()

	var row tourRow
	err := db.GetContext(ctx, &row, "SELECT id, snapshot, downloaded_at, audio_resources, image_resources FROM tours WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, domain.ErrStorageRead)
	}

	dt, err := row.toDomain()
	if err != nil {
		db.log.Warn("Skipping corrupt catalog row", "tour_id", row.ID, "error", err)
		return nil, nil
	}
	return dt, nil
}

// GetAllTours returns every readable catalog row, newest first. Corrupt
// rows are skipped with a warning; one bad snapshot never poisons the
// whole catalog.
func (db *DB) GetAllTours(ctx context.Context) ([]*domain.DownloadedTour, error) {
	ctx, cancel := db.withWatchdog(ctx)
	defer cancel()

	var rows []tourRow
	err := db.SelectContext(ctx, &rows, "SELECT id, snapshot, downloaded_at, audio_resources, image_resources FROM tours ORDER BY downloaded_at DESC")
	if err != nil {
		return nil, classify(err, domain.ErrStorageRead)
	}

	tours := make([]*domain.DownloadedTour, 0, len(rows))
	for i := range rows {
		dt, err := rows[i].toDomain()
		if err != nil {
			db.log.Warn("Skipping corrupt catalog row", "tour_id", rows[i].ID, "error", err)
			continue
		}
		tours = append(tours, dt)
	}
	return tours, nil
}

// DeleteTour is idempotent; deleting a non-existent id is not an error.
func (db *DB) DeleteTour(ctx context.Context, id string) error {
	ctx, cancel := db.withWatchdog(ctx)
	defer cancel()

	_, err := db.ExecContext(ctx, "DELETE FROM tours WHERE id = ?", id)
	return classify(err, domain.ErrStorageWrite)
}
