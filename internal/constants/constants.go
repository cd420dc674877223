// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort      = "8080"
	DefaultDBPath    = "tourcache.db"
	DefaultCacheDir  = "tourcache-cache"
	DefaultHandleDir = "tourcache-handles"
	DefaultProbeURL  = "https://www.gstatic.com/generate_204"
)

// Download liveness
const (
	DefaultStallTimeout = 30 * time.Second
	DefaultMaxDownload  = 5 * time.Minute
	HealthCheckInterval = 5 * time.Second
)

// Storage
const (
	// Watchdog for every blob/catalog operation, independent of the
	// engine's own busy timeout. A hung storage call rejects instead of
	// blocking the caller forever.
	StorageOpTimeout = 10 * time.Second
	SchemaVersion    = 1
)

// Network fetch
const (
	DefaultHTTPTimeout  = 2 * time.Minute
	DefaultRetryCount   = 3
	DefaultRetryBase    = 1 * time.Second
	DefaultFetchRate    = 4 // requests per second
	DefaultFetchBurst   = 2
	DefaultProbePeriod  = 10 * time.Second
	DefaultProbeTimeout = 5 * time.Second
)

// Cache key prefixes
const (
	AudioKeyPrefix = "audio-"
	ImageKeyPrefix = "image-"
	TourKeyPrefix  = "tour-"
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Characters to sanitize from filesystem paths
const InvalidPathChars = "<>:\"/\\|?*"
