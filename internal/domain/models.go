package domain

import (
	"net/http"
	"time"
)

// AudioVariant identifies one of the narration lengths generated per stop.
type AudioVariant string

const (
	VariantBrief    AudioVariant = "brief"
	VariantDetailed AudioVariant = "detailed"
	VariantComplete AudioVariant = "complete"
)

// Variants lists all audio variants in manifest order.
var Variants = []AudioVariant{VariantBrief, VariantDetailed, VariantComplete}

// Stop is one point of interest on a tour.
type Stop struct {
	PoiID        string  `json:"poi_id"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Position     int     `json:"position"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
}

// Tour is a denormalized snapshot of a tour's display data, captured at
// download time. It is not kept live-synced with the server copy.
type Tour struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stops []Stop `json:"stops"`
}

// AudioManifest maps a stop's poiID to the remote URLs of its audio
// variants. Absent variants are simply skipped.
type AudioManifest map[string]map[AudioVariant]string

// DownloadedTour is one catalog row. A row exists iff the download
// completed successfully; the row itself is the durability watermark.
type DownloadedTour struct {
	ID             string      `json:"id" db:"id"`
	Tour           *Tour       `json:"tour" db:"-"`
	DownloadedAt   time.Time   `json:"downloaded_at" db:"downloaded_at"`
	AudioResources StringSlice `json:"audio_resources" db:"audio_resources"`
	ImageResources StringSlice `json:"image_resources" db:"image_resources"`
}

// CachedResource is one blob store row.
type CachedResource struct {
	CacheKey  string    `json:"cache_key" db:"cache_key"`
	Blob      []byte    `json:"-" db:"data"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// Resource is a fetched remote resource: status, headers, raw body.
// It is the unit stored in the resource cache and served back offline.
type Resource struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// ContentType returns the resource's Content-Type header, or an empty string.
func (r *Resource) ContentType() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}

// JobStatus represents the lifecycle of a download job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// DownloadJob tracks one in-flight or finished tour download for API
// consumers. It is in-memory only, never persisted.
type DownloadJob struct {
	ID        string    `json:"id"`
	TourID    string    `json:"tour_id"`
	Status    JobStatus `json:"status"`
	Progress  float64   `json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StorageStats summarizes local storage usage for the UI.
type StorageStats struct {
	TourCount  int   `json:"tour_count"`
	BlobCount  int   `json:"blob_count"`
	TotalBytes int64 `json:"total_bytes"`
}
