package offline

import (
	"context"
	"fmt"

	"github.com/mikaelweill/audio-guide-sub001/internal/domain"
)

// DeleteTour removes a tour from the catalog and garbage-collects its
// resources. A resource is purged only when no other downloaded tour still
// references it; the reference set is recomputed fresh from the full
// catalog on every delete, never cached, so out-of-band row changes can
// never make the count drift.
func (m *Manager) DeleteTour(ctx context.Context, tourID string, silent bool) error {
	log := m.log.WithTour(tourID)

	target, err := m.blobs.GetTour(ctx, tourID)
	if err != nil {
		return fmt.Errorf("failed to load tour for delete: %w", err)
	}
	if target == nil {
		if !silent {
			log.Warn("Tour is not downloaded, nothing to delete")
		}
		return nil
	}

	// Remove the catalog row first: from this point on the tour reports
	// as not downloaded even if resource purging is interrupted.
	if err := m.blobs.DeleteTour(ctx, tourID); err != nil {
		return fmt.Errorf("failed to delete catalog row: %w", err)
	}

	remaining, err := m.blobs.GetAllTours(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan catalog for references: %w", err)
	}

	referenced := make(map[string]bool)
	for _, t := range remaining {
		for _, key := range t.AudioResources {
			referenced[key] = true
		}
		for _, key := range t.ImageResources {
			referenced[key] = true
		}
	}

	owned := make([]string, 0, len(target.AudioResources)+len(target.ImageResources)+1)
	owned = append(owned, target.AudioResources...)
	owned = append(owned, target.ImageResources...)
	// The descriptor blob is per-tour and never shared.
	owned = append(owned, domain.TourCacheKey(tourID))

	purged := 0
	for _, key := range owned {
		if referenced[key] {
			continue
		}
		m.purgeResource(ctx, key)
		purged++
	}

	log.Info("Tour deleted", "purged_resources", purged, "shared_kept", len(owned)-purged)
	return nil
}

// purgeResource removes one key from both storage layers. Best-effort: a
// failed purge leaves an orphan for the next explicit cleanup, never a
// failed delete.
func (m *Manager) purgeResource(ctx context.Context, key string) {
	if m.cache != nil && m.cache.Available() {
		if err := m.cache.Delete(key); err != nil {
			m.log.Warn("Failed to purge cache entry", "cache_key", key, "error", err)
		}
	}
	if err := m.blobs.DeleteBlob(ctx, key); err != nil {
		m.log.Warn("Failed to purge blob", "cache_key", key, "error", err)
	}
}
