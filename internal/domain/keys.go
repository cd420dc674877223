package domain

import (
	"net/url"
	"path"

	"github.com/mikaelweill/audio-guide-sub001/internal/constants"
)

// Cache keys are stable identifiers derived from what a resource IS, never
// from where it was fetched. Remote URLs are short-lived signed URLs that
// rotate; deriving keys from them would invalidate the offline set on every
// rotation.

// AudioCacheKey returns the stable key for one stop's audio variant.
func AudioCacheKey(poiID string, variant AudioVariant) string {
	return constants.AudioKeyPrefix + poiID + "-" + string(variant)
}

// ImageCacheKey returns the stable key for an image, derived from the
// canonical filename of the URL path. Query parameters (signatures,
// expiry tokens) are deliberately ignored.
func ImageCacheKey(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil || u.Path == "" {
		// Unparseable URLs still need a deterministic key.
		return constants.ImageKeyPrefix + path.Base(imageURL)
	}
	return constants.ImageKeyPrefix + path.Base(u.Path)
}

// TourCacheKey returns the key under which a tour's descriptor snapshot is
// stored in the blob store.
func TourCacheKey(tourID string) string {
	return constants.TourKeyPrefix + tourID
}
