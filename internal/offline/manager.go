// Package offline orchestrates tour downloads, offline storage, and
// deletion. It owns the authoritative notion of "is this tour available
// offline": the catalog row, written only after every resource write has
// been attempted.
package offline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/mikaelweill/audio-guide-sub001/internal/domain"
	"github.com/mikaelweill/audio-guide-sub001/internal/logger"
)

// BlobStore is the durable backstop: structured key/binary storage plus
// the downloaded-tour catalog.
type BlobStore interface {
	PutBlob(ctx context.Context, cacheKey string, data []byte) error
	GetBlob(ctx context.Context, cacheKey string) ([]byte, error)
	DeleteBlob(ctx context.Context, cacheKey string) error
	ListBlobKeys(ctx context.Context) ([]string, error)
	BlobStats(ctx context.Context) (int, int64, error)
	PutTour(ctx context.Context, tour *domain.DownloadedTour) error
	GetTour(ctx context.Context, id string) (*domain.DownloadedTour, error)
	GetAllTours(ctx context.Context) ([]*domain.DownloadedTour, error)
	DeleteTour(ctx context.Context, id string) error
}

// ResourceCache is the fast-path response cache. May be unavailable; every
// failure is recoverable.
type ResourceCache interface {
	Available() bool
	Store(cacheKey string, res *domain.Resource) error
	Match(cacheKey string) (*domain.Resource, error)
	Delete(cacheKey string) error
}

// Fetcher pulls remote resources.
type Fetcher interface {
	FetchResource(ctx context.Context, url string) (*domain.Resource, error)
}

// SessionMonitor tracks download liveness. Register returns a session
// token that Complete must present back, so a superseded download cannot
// tear down its replacement's session.
type SessionMonitor interface {
	Register(tourID string, cancel context.CancelCauseFunc) uint64
	ReportProgress(tourID string, progress float64)
	Complete(tourID string, token uint64)
}

// NetworkStatus is the live connectivity signal. Optional; downloads are
// not refused offline, the fetches just fail on their own.
type NetworkStatus interface {
	Online() bool
}

// ProgressFunc receives monotone progress from 0 to 100. Exactly 100 is
// reported only on success.
type ProgressFunc func(percent float64)

// StorageContext carries the manager's dependencies explicitly so tests can
// substitute in-memory fakes for both storage layers.
type StorageContext struct {
	Blobs   BlobStore
	Cache   ResourceCache
	Fetcher Fetcher
	Monitor SessionMonitor
	Net     NetworkStatus
	Logger  *logger.Logger
}

type Manager struct {
	blobs   BlobStore
	cache   ResourceCache
	fetcher Fetcher
	monitor SessionMonitor
	net     NetworkStatus
	log     *logger.Logger
}

func NewManager(sc StorageContext) *Manager {
	log := sc.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Manager{
		blobs:   sc.Blobs,
		cache:   sc.Cache,
		fetcher: sc.Fetcher,
		monitor: sc.Monitor,
		net:     sc.Net,
		log:     log.WithComponent("offline"),
	}
}

type resourceKind int

const (
	kindAudio resourceKind = iota
	kindImage
)

type resourceEntry struct {
	url      string
	cacheKey string
	kind     resourceKind
}

// buildResourceList flattens a tour and its audio manifest into fetchable
// (remoteURL, stableCacheKey) pairs, in stop order. Absent audio variants
// and stops without thumbnails are skipped; duplicate keys (shared images)
// appear once.
func buildResourceList(tour *domain.Tour, manifest domain.AudioManifest) []resourceEntry {
	var entries []resourceEntry
	seen := make(map[string]bool)

	add := func(e resourceEntry) {
		if e.url == "" || seen[e.cacheKey] {
			return
		}
		seen[e.cacheKey] = true
		entries = append(entries, e)
	}

	for _, stop := range tour.Stops {
		if stop.ThumbnailURL != "" {
			add(resourceEntry{
				url:      stop.ThumbnailURL,
				cacheKey: domain.ImageCacheKey(stop.ThumbnailURL),
				kind:     kindImage,
			})
		}
		for _, variant := range domain.Variants {
			if url, ok := manifest[stop.PoiID][variant]; ok {
				add(resourceEntry{
					url:      url,
					cacheKey: domain.AudioCacheKey(stop.PoiID, variant),
					kind:     kindAudio,
				})
			}
		}
	}
	return entries
}

// errStrategyFailed marks a total failure of the cache-first storage path.
// The whole resource set is then retried blob-store-only; the two paths are
// alternative strategies, never mixed per resource.
var errStrategyFailed = errors.New("cache storage strategy failed")

// DownloadTour fetches and stores every resource a tour needs offline. Only
// a timeout, an abort, or zero successful resources fail the operation;
// individual fetch failures are logged and skipped.
func (m *Manager) DownloadTour(ctx context.Context, tour *domain.Tour, manifest domain.AudioManifest, onProgress ProgressFunc) error {
	if tour == nil || tour.ID == "" {
		return fmt.Errorf("invalid tour descriptor")
	}
	log := m.log.WithTour(tour.ID)

	entries := buildResourceList(tour, manifest)
	if len(entries) == 0 {
		return domain.ErrNoResources
	}

	if m.net != nil && !m.net.Online() {
		// The fetches will fail on their own; surfacing this early makes
		// the inevitable ErrAllResourcesFailed explicable in the logs.
		log.Warn("Starting download while offline")
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	token := m.monitor.Register(tour.ID, cancel)
	// Unregister on every exit path. After a monitor-forced abort or a
	// supersede the token no longer matches and this is a no-op.
	defer m.monitor.Complete(tour.ID, token)

	// The monitor hears every report as a liveness signal, including the
	// fallback strategy re-covering ground. Only the caller-facing
	// progress stays monotone.
	var lastReported float64 = -1
	report := func(p float64) {
		m.monitor.ReportProgress(tour.ID, p)
		if p <= lastReported {
			return
		}
		lastReported = p
		if onProgress != nil {
			onProgress(p)
		}
	}
	report(0)

	useCache := m.cache != nil && m.cache.Available()
	audio, images, err := m.storeResources(ctx, log, entries, useCache, report)
	if errors.Is(err, errStrategyFailed) {
		log.Warn("Cache storage path failed, retrying with blob store only", "error", err)
		audio, images, err = m.storeResources(ctx, log, entries, false, report)
	}
	if err != nil {
		m.cleanupPartial(tour.ID)
		return err
	}

	// The tour's own descriptor is stored alongside its resources so the
	// snapshot is servable by cache key like everything else.
	snapshot, err := json.Marshal(tour)
	if err != nil {
		m.cleanupPartial(tour.ID)
		return fmt.Errorf("failed to serialize tour descriptor: %w", err)
	}
	if err := m.blobs.PutBlob(ctx, domain.TourCacheKey(tour.ID), snapshot); err != nil {
		m.cleanupPartial(tour.ID)
		return fmt.Errorf("failed to store tour descriptor: %w", err)
	}

	// The catalog row is the durability watermark: written only after all
	// resource writes were attempted. Interruption before this point
	// leaves orphans at most, never a catalog entry.
	row := &domain.DownloadedTour{
		ID:             tour.ID,
		Tour:           tour,
		DownloadedAt:   time.Now(),
		AudioResources: audio,
		ImageResources: images,
	}
	if err := m.blobs.PutTour(ctx, row); err != nil {
		m.cleanupPartial(tour.ID)
		return fmt.Errorf("failed to commit catalog row: %w", err)
	}

	report(100)
	log.Info("Tour downloaded",
		"audio_resources", len(audio),
		"image_resources", len(images),
		"skipped", len(entries)-len(audio)-len(images),
	)
	return nil
}

// storeResources runs one storage strategy over the whole resource set,
// sequentially, one resource at a time. Sequential fetching is a
// deliberate throttle: it trades wall-clock time for predictable progress
// and not overwhelming the network with simultaneous large fetches.
func (m *Manager) storeResources(ctx context.Context, log *logger.Logger, entries []resourceEntry, useCache bool, report ProgressFunc) (domain.StringSlice, domain.StringSlice, error) {
	var audio, images domain.StringSlice

	// One extra progress slot for the catalog commit, so the loop never
	// reports 100 on its own.
	total := len(entries) + 1

	for i, entry := range entries {
		if ctx.Err() != nil {
			return nil, nil, m.abortReason(ctx)
		}

		res, err := m.fetcher.FetchResource(ctx, entry.url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, m.abortReason(ctx)
			}
			// That one resource is simply missing from the offline set.
			log.Warn("Skipping resource, fetch failed", "cache_key", entry.cacheKey, "error", err)
			report(float64(i+1) / float64(total) * 100)
			continue
		}

		if useCache {
			if err := m.cache.Store(entry.cacheKey, res); err != nil {
				return nil, nil, fmt.Errorf("%w: store %s: %v", errStrategyFailed, entry.cacheKey, err)
			}
		}

		if err := m.blobs.PutBlob(ctx, entry.cacheKey, res.Body); err != nil {
			if useCache {
				return nil, nil, fmt.Errorf("%w: blob backup %s: %v", errStrategyFailed, entry.cacheKey, err)
			}
			// Blob-store-only was the last resort; the whole download fails.
			return nil, nil, fmt.Errorf("blob store write for %s: %w", entry.cacheKey, err)
		}

		switch entry.kind {
		case kindAudio:
			audio = append(audio, entry.cacheKey)
		case kindImage:
			images = append(images, entry.cacheKey)
		}
		report(float64(i+1) / float64(total) * 100)
	}

	if len(audio)+len(images) == 0 {
		return nil, nil, domain.ErrAllResourcesFailed
	}
	return audio, images, nil
}

// abortReason distinguishes a monitor-forced timeout from any other
// cancellation so the UI can offer a deliberate retry.
func (m *Manager) abortReason(ctx context.Context) error {
	if cause := context.Cause(ctx); errors.Is(cause, domain.ErrDownloadTimeout) {
		return domain.ErrDownloadTimeout
	}
	return domain.ErrDownloadAborted
}

// cleanupPartial best-effort purges whatever a failed or aborted download
// wrote. It runs the normal delete path under a fresh context: the
// download's own context is typically already cancelled.
func (m *Manager) cleanupPartial(tourID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := m.DeleteTour(ctx, tourID, true); err != nil {
		m.log.Warn("Partial state cleanup failed", "tour_id", tourID, "error", err)
	}
}
