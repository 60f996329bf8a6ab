// Package delivery hands generated documents to the host filesystem.
package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Filename builds the suggested output name: <client>[-<from>][-<to>].<ext>.
// Without a client name the stem falls back to "export".
func Filename(clientName string, from, to *time.Time, ext string) string {
	name := clientName
	if name == "" {
		name = "export"
	}
	if from != nil {
		name += "-" + from.Format("2006-01-02")
	}
	if to != nil {
		name += "-" + to.Format("2006-01-02")
	}
	return name + "." + ext
}

// BackupFilename names a store snapshot for the given day.
func BackupFilename(at time.Time, ext string) string {
	return fmt.Sprintf("backup-%s.%s", at.Format("2006-01-02"), ext)
}

// Save writes the produced bytes under dir, creating it if needed, and
// returns the full path.
func Save(dir, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
