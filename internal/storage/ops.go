// Package storage contains small filesystem helpers for materialized
// resource handles.
package storage

import (
	"os"
	"strings"

	"github.com/mikaelweill/audio-guide-sub001/internal/constants"
)

func Sanitize(s string) string {
	// Simple sanitize for FS
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(constants.InvalidPathChars, r) {
			return '_'
		}
		return r
	}, s)

	return strings.TrimRight(mapped, ". ")
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

func WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, constants.FilePermissions)
}

func RemoveFile(path string) error {
	return os.Remove(path)
}

func IsNotExist(err error) bool {
	return os.IsNotExist(err)
}
