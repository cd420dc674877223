package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"audio-p1-brief":      "audio-p1-brief",
		"image/stop?v=1":      "image_stop_v=1",
		"key<with>bad:chars*": "key_with_bad_chars_",
		"trailing. ":          "trailing",
	}

	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileOps(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "handles")

	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}

	path := filepath.Join(dir, "audio-p1-brief.bin")
	if err := WriteFile(path, []byte("payload")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Expected 'payload', got %s", data)
	}

	if err := RemoveFile(path); err != nil {
		t.Fatalf("RemoveFile failed: %v", err)
	}

	_, err = os.Stat(path)
	if !IsNotExist(err) {
		t.Error("Expected file to be removed")
	}
}
