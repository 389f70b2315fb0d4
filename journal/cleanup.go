package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cleanup removes journal files older than maxAge and returns how many
// were deleted.
func Cleanup(dir string, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	files := findJournalFiles(dir)

	removed := 0
	for _, file := range files {
		if !isOlderThan(file, cutoff) {
			continue
		}
		if err := os.Remove(file); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", file, err)
		}
		removed++
	}
	return removed, nil
}

// findJournalFiles returns all journal files in directory
func findJournalFiles(dir string) []string {
	pattern := filepath.Join(dir, "surveyor-*.wal")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	return files
}

// isOlderThan checks if file modification time is before cutoff
func isOlderThan(path string, cutoff time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.ModTime().Before(cutoff)
}
