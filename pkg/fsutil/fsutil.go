// Package fsutil provides small filesystem helpers shared by the conversion
// pipeline: filename sanitizing, directory bootstrap, and best-effort removal.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// maxFilenameLength caps sanitized names so artifact paths stay well under
// common filesystem limits even with a UUID suffix appended.
const maxFilenameLength = 100

var (
	unsafeChars = regexp.MustCompile(`[^\w\s-]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// SanitizeFilename turns an arbitrary media title into a safe filesystem
// name: non-word characters are stripped, runs of whitespace collapse to a
// single underscore, and the result is truncated to 100 runes.
func SanitizeFilename(title string) string {
	s := unsafeChars.ReplaceAllString(title, "")
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), "_")
	runes := []rune(s)
	if len(runes) > maxFilenameLength {
		runes = runes[:maxFilenameLength]
	}
	return string(runes)
}

// EnsureDir creates the directory (and parents) if it does not exist.
func EnsureDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("directory path is empty")
	}
	return os.MkdirAll(dir, 0755)
}

// Remove deletes a file or directory tree. Missing paths are not an error;
// cleanup in the pipeline is always best-effort and races with downloads
// and eviction are expected.
func Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// ClearDir removes every entry inside dir without removing dir itself.
// Returns the number of entries removed. Used for startup hygiene on the
// storage root.
func ClearDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read dir %s: %w", dir, err)
	}
	removed := 0
	for _, entry := range entries {
		if err := Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
