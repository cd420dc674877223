package domain

import "errors"

// Whole-operation failures surfaced to the UI layer. Component-internal
// soft failures (a cache miss, one resource's fetch error) never bubble
// past the persistence manager.
var (
	// ErrNoResources means the tour descriptor and manifest yielded nothing
	// to download. Treated as a caller error, not a silent success.
	ErrNoResources = errors.New("tour has no downloadable resources")

	// ErrAllResourcesFailed means every fetch in the resource list failed.
	ErrAllResourcesFailed = errors.New("no resources could be downloaded")

	// ErrDownloadTimeout is the cancellation cause set by the download
	// monitor when a session stalls or exceeds the hard duration cap.
	ErrDownloadTimeout = errors.New("download timed out")

	// ErrDownloadAborted is returned when a download was cancelled,
	// either explicitly or by a newer download for the same tour.
	ErrDownloadAborted = errors.New("download aborted")

	// ErrResourceUnavailableOffline is expected and user-facing: the
	// requested resource was never downloaded, so playback of that one
	// stop degrades instead of the whole session failing.
	ErrResourceUnavailableOffline = errors.New("resource not available offline")

	// ErrStorageWrite wraps quota and I/O failures from the blob store.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrStorageRead wraps genuine I/O failures from the blob store.
	// "Not found" is never an error, only a nil result.
	ErrStorageRead = errors.New("storage read failed")

	// ErrStorageTimeout means a storage operation exceeded its watchdog
	// deadline. The engine may still be hung; the caller is not.
	ErrStorageTimeout = errors.New("storage operation timed out")

	// ErrCacheUnavailable means the resource cache could not be opened or
	// is disabled. Always recoverable by falling through to the blob store.
	ErrCacheUnavailable = errors.New("resource cache unavailable")
)
