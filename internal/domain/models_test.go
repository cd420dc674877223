package domain

import (
	"net/http"
	"testing"
)

func TestAudioCacheKey(t *testing.T) {
	key := AudioCacheKey("poi-42", VariantBrief)
	if key != "audio-poi-42-brief" {
		t.Errorf("Expected audio-poi-42-brief, got %s", key)
	}

	// Same identity always yields the same key
	if key != AudioCacheKey("poi-42", VariantBrief) {
		t.Error("Expected cache key to be deterministic")
	}

	// Different variants yield different keys
	if AudioCacheKey("poi-42", VariantDetailed) == key {
		t.Error("Expected different variants to produce different keys")
	}
}

func TestImageCacheKey(t *testing.T) {
	// Key comes from the canonical filename, not from the full URL
	a := ImageCacheKey("https://cdn.example.com/photos/eiffel.jpg?sig=abc&exp=123")
	b := ImageCacheKey("https://cdn.example.com/photos/eiffel.jpg?sig=def&exp=456")
	if a != b {
		t.Errorf("Expected rotating signed URLs to share a key, got %s vs %s", a, b)
	}
	if a != "image-eiffel.jpg" {
		t.Errorf("Expected image-eiffel.jpg, got %s", a)
	}

	// Different filenames yield different keys
	c := ImageCacheKey("https://cdn.example.com/photos/louvre.jpg")
	if c == a {
		t.Error("Expected different filenames to produce different keys")
	}
}

func TestTourCacheKey(t *testing.T) {
	if TourCacheKey("t1") != "tour-t1" {
		t.Errorf("Expected tour-t1, got %s", TourCacheKey("t1"))
	}
}

func TestStringSliceValueAndScan(t *testing.T) {
	s := StringSlice{"a", "b"}
	v, err := s.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var out StringSlice
	if err := out.Scan(v); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(out) != 2 || out[0] != "a" || out[1] != "b" {
		t.Errorf("Expected [a b], got %v", out)
	}

	// Empty slice round-trips as []
	empty := StringSlice{}
	v, err = empty.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v != "[]" {
		t.Errorf("Expected [], got %v", v)
	}

	// Nil scan
	var nilOut StringSlice
	if err := nilOut.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if nilOut != nil {
		t.Errorf("Expected nil, got %v", nilOut)
	}
}

func TestStringSliceContains(t *testing.T) {
	s := StringSlice{"audio-p1-brief", "audio-p2-brief"}
	if !s.Contains("audio-p1-brief") {
		t.Error("Expected Contains to find existing key")
	}
	if s.Contains("audio-p3-brief") {
		t.Error("Expected Contains to reject missing key")
	}
}

func TestResourceContentType(t *testing.T) {
	r := &Resource{Status: 200, Header: http.Header{"Content-Type": []string{"audio/mpeg"}}}
	if r.ContentType() != "audio/mpeg" {
		t.Errorf("Expected audio/mpeg, got %s", r.ContentType())
	}

	r = &Resource{Status: 200}
	if r.ContentType() != "" {
		t.Errorf("Expected empty content type, got %s", r.ContentType())
	}
}
