package offline

import (
	"context"
	"fmt"

	"github.com/mikaelweill/audio-guide-sub001/internal/domain"
)

// IsTourDownloaded is an existence check against the catalog only. It does
// not verify that every resource blob is still retrievable: a missing
// individual resource degrades playback of that one stop rather than
// invalidating the whole tour. A corrupt or unreadable row reports as not
// downloaded; the system self-heals by re-downloading.
func (m *Manager) IsTourDownloaded(ctx context.Context, tourID string) bool {
	tour, err := m.blobs.GetTour(ctx, tourID)
	if err != nil {
		m.log.Warn("Catalog read failed, reporting tour as not downloaded", "tour_id", tourID, "error", err)
		return false
	}
	return tour != nil
}

// GetAllDownloadedTours returns the catalog.
func (m *Manager) GetAllDownloadedTours(ctx context.Context) ([]*domain.DownloadedTour, error) {
	tours, err := m.blobs.GetAllTours(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloaded tours: %w", err)
	}
	return tours, nil
}

// CleanupOrphans removes blob and cache entries no catalog row references.
// Orphans accumulate from interrupted downloads, which deliberately leave
// them behind rather than risking cleanup during an abort. Returns the
// number of purged keys.
func (m *Manager) CleanupOrphans(ctx context.Context) (int, error) {
	keys, err := m.blobs.ListBlobKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list blobs: %w", err)
	}

	tours, err := m.blobs.GetAllTours(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to scan catalog: %w", err)
	}

	referenced := make(map[string]bool)
	for _, t := range tours {
		referenced[domain.TourCacheKey(t.ID)] = true
		for _, key := range t.AudioResources {
			referenced[key] = true
		}
		for _, key := range t.ImageResources {
			referenced[key] = true
		}
	}

	purged := 0
	for _, key := range keys {
		if referenced[key] {
			continue
		}
		m.purgeResource(ctx, key)
		purged++
	}

	if purged > 0 {
		m.log.Info("Orphan cleanup finished", "purged", purged)
	}
	return purged, nil
}

// Stats summarizes local storage usage.
func (m *Manager) Stats(ctx context.Context) (*domain.StorageStats, error) {
	tours, err := m.blobs.GetAllTours(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan catalog: %w", err)
	}

	count, bytes, err := m.blobs.BlobStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob stats: %w", err)
	}

	return &domain.StorageStats{
		TourCount:  len(tours),
		BlobCount:  count,
		TotalBytes: bytes,
	}, nil
}
