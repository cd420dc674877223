package httpapp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/mikaelweill/audio-guide-sub001/internal/domain"
)

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/tours/{id}/download", h.StartDownload)
		r.Delete("/tours/{id}", h.DeleteTour)
		r.Get("/tours/{id}/downloaded", h.CheckDownloaded)
		r.Get("/tours/downloaded", h.ListDownloaded)
		r.Get("/downloads/{jobID}", h.DownloadStatus)
		r.Get("/resolve", h.Resolve)
		r.Post("/cleanup", h.Cleanup)
		r.Get("/stats", h.Stats)
		r.Get("/network", h.NetworkState)
	})
}

type downloadRequest struct {
	Tour          *domain.Tour         `json:"tour"`
	AudioManifest domain.AudioManifest `json:"audio_manifest"`
}

// StartDownload kicks off a tour download and returns the job id. Progress
// is polled via DownloadStatus; the download itself runs detached from the
// request context, supervised by the download monitor.
func (h *Handler) StartDownload(w http.ResponseWriter, r *http.Request) {
	tourID := chi.URLParam(r, "id")

	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Tour == nil || req.Tour.ID == "" {
		writeError(w, http.StatusBadRequest, "tour descriptor is required")
		return
	}
	if req.Tour.ID != tourID {
		writeError(w, http.StatusBadRequest, "tour id mismatch")
		return
	}

	job := h.newJob(tourID)

	go func() {
		err := h.Offline.DownloadTour(context.Background(), req.Tour, req.AudioManifest, func(p float64) {
			h.updateJob(job.ID, func(j *domain.DownloadJob) { j.Progress = p })
		})
		h.updateJob(job.ID, func(j *domain.DownloadJob) {
			if err != nil {
				j.Status = domain.JobStatusFailed
				j.Error = err.Error()
				return
			}
			j.Status = domain.JobStatusCompleted
		})
		if err != nil {
			h.Logger.Error("Tour download failed", "tour_id", tourID, "job_id", job.ID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func (h *Handler) DownloadStatus(w http.ResponseWriter, r *http.Request) {
	job := h.getJob(chi.URLParam(r, "jobID"))
	if job == nil {
		writeError(w, http.StatusNotFound, "unknown download job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) DeleteTour(w http.ResponseWriter, r *http.Request) {
	tourID := chi.URLParam(r, "id")
	silent := r.URL.Query().Get("silent") == "1"

	if err := h.Offline.DeleteTour(r.Context(), tourID, silent); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CheckDownloaded(w http.ResponseWriter, r *http.Request) {
	tourID := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, map[string]bool{
		"downloaded": h.Offline.IsTourDownloaded(r.Context(), tourID),
	})
}

func (h *Handler) ListDownloaded(w http.ResponseWriter, r *http.Request) {
	tours, err := h.Offline.GetAllDownloadedTours(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tours == nil {
		tours = []*domain.DownloadedTour{}
	}
	writeJSON(w, http.StatusOK, tours)
}

// Resolve returns a playable handle for one resource.
// kind=audio requires poi and variant; kind=image requires url.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		handle string
		err    error
	)
	switch q.Get("kind") {
	case "audio":
		poi := q.Get("poi")
		variant := domain.AudioVariant(q.Get("variant"))
		if poi == "" || variant == "" {
			writeError(w, http.StatusBadRequest, "poi and variant are required for audio")
			return
		}
		handle, err = h.Resolver.ResolveAudio(r.Context(), poi, variant, q.Get("url"))
	case "image":
		url := q.Get("url")
		if url == "" {
			writeError(w, http.StatusBadRequest, "url is required for image")
			return
		}
		handle, err = h.Resolver.ResolveImage(r.Context(), url)
	default:
		writeError(w, http.StatusBadRequest, "kind must be audio or image")
		return
	}

	if errors.Is(err, domain.ErrResourceUnavailableOffline) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": handle})
}

func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	// The sweep can outlive an impatient client.
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	purged, err := h.Offline.CleanupOrphans(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"purged": purged})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Offline.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) NetworkState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"online": h.Network.Online()})
}
