// Package fileutil provides the file name and size helpers shared by the audio
// store, the upload checks and the command-line client.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDirPermissions  = 0o750
	dot                    = "."
	invalidCharReplacement = "_"
)

// Data size constants.
const (
	byteUnit = 1
	kilobyte = byteUnit * 1024
	megabyte = kilobyte * 1024
	gigabyte = megabyte * 1024
)

// Size formatting constants.
const (
	formatGB    = "%.1f GB"
	formatMB    = "%.1f MB"
	formatKB    = "%.1f KB"
	formatBytes = "%d B"
)

// Audio file extension constants.
const (
	extAAC  = ".aac"
	extFLAC = ".flac"
	extM4A  = ".m4a"
	extMP3  = ".mp3"
	extOGG  = ".ogg"
	extWAV  = ".wav"
)

const errFmtFailedToCreateDir = "failed to create directory %s: %w"

// EnsureDir ensures a directory exists at the given path, creating it and its
// parents if it doesn't.
func EnsureDir(path string) error {
	err := os.MkdirAll(path, defaultDirPermissions)
	if err != nil {
		return fmt.Errorf(errFmtFailedToCreateDir, path, err)
	}

	return nil
}

// FormatFileSize formats a size in a human-readable string (e.g., "1.2 GB", "500.5 KB").
func FormatFileSize(bytes int64) string {
	switch {
	case bytes >= gigabyte:
		return fmt.Sprintf(formatGB, float64(bytes)/gigabyte)
	case bytes >= megabyte:
		return fmt.Sprintf(formatMB, float64(bytes)/megabyte)
	case bytes >= kilobyte:
		return fmt.Sprintf(formatKB, float64(bytes)/kilobyte)
	default:
		return fmt.Sprintf(formatBytes, bytes)
	}
}

// IsAudioFile checks if a filename has a common audio file extension. The check is
// case-insensitive.
func IsAudioFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case extWAV, extMP3, extFLAC, extOGG, extM4A, extAAC:
		return true
	default:
		return false
	}
}

// Extension returns the lower-cased file extension without the leading dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), dot))
}

// IsPlainName reports whether name is a single path element: no separators and no
// "." or ".." references.
func IsPlainName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && name == filepath.Base(name)
}

// SanitizeFilename replaces characters that are invalid in most filesystems, and
// control characters, with an underscore.
func SanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"<", invalidCharReplacement,
		">", invalidCharReplacement,
		":", invalidCharReplacement,
		"\"", invalidCharReplacement,
		"/", invalidCharReplacement,
		"\\", invalidCharReplacement,
		"|", invalidCharReplacement,
		"?", invalidCharReplacement,
		"*", invalidCharReplacement,
	)

	return strings.Map(func(r rune) rune {
		if r < ' ' || r == 0x7f {
			return '_'
		}

		return r
	}, replacer.Replace(filename))
}
