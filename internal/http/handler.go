package httpapp

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mikaelweill/audio-guide-sub001/internal/domain"
	"github.com/mikaelweill/audio-guide-sub001/internal/logger"
	"github.com/mikaelweill/audio-guide-sub001/internal/offline"
)

// OfflineService is the persistence manager surface the API exposes.
type OfflineService interface {
	DownloadTour(ctx context.Context, tour *domain.Tour, manifest domain.AudioManifest, onProgress offline.ProgressFunc) error
	DeleteTour(ctx context.Context, tourID string, silent bool) error
	IsTourDownloaded(ctx context.Context, tourID string) bool
	GetAllDownloadedTours(ctx context.Context) ([]*domain.DownloadedTour, error)
	CleanupOrphans(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*domain.StorageStats, error)
}

// ResourceResolver resolves playback handles.
type ResourceResolver interface {
	ResolveAudio(ctx context.Context, poiID string, variant domain.AudioVariant, remoteURL string) (string, error)
	ResolveImage(ctx context.Context, imageURL string) (string, error)
}

// NetworkStatus is the live connectivity signal.
type NetworkStatus interface {
	Online() bool
}

type Handler struct {
	Offline  OfflineService
	Resolver ResourceResolver
	Network  NetworkStatus
	Logger   *logger.Logger

	mu   sync.Mutex
	jobs map[string]*domain.DownloadJob
}

func NewHandler(svc OfflineService, res ResourceResolver, net NetworkStatus, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		Offline:  svc,
		Resolver: res,
		Network:  net,
		Logger:   log.WithComponent("http"),
		jobs:     make(map[string]*domain.DownloadJob),
	}
}

func (h *Handler) newJob(tourID string) *domain.DownloadJob {
	job := &domain.DownloadJob{
		ID:        uuid.NewString(),
		TourID:    tourID,
		Status:    domain.JobStatusRunning,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	h.mu.Lock()
	h.jobs[job.ID] = job
	h.mu.Unlock()
	return job
}

func (h *Handler) updateJob(id string, fn func(*domain.DownloadJob)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if job, ok := h.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = time.Now()
	}
}

func (h *Handler) getJob(id string) *domain.DownloadJob {
	h.mu.Lock()
	defer h.mu.Unlock()
	job, ok := h.jobs[id]
	if !ok {
		return nil
	}
	snapshot := *job
	return &snapshot
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
