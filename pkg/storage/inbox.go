// Package storage manages the watch-mode inbox on the local filesystem:
// swept files move into dated processed/ or failed/ subdirectories so a
// re-run never imports the same upload twice.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Inbox is a watched directory plus its outcome subdirectories.
type Inbox struct {
	dir string
}

// NewInbox prepares the outcome subdirectories under the watched dir.
func NewInbox(dir string) (*Inbox, error) {
	for _, sub := range []string{"processed", "failed"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}
	return &Inbox{dir: dir}, nil
}

// Pending lists importable files still sitting in the inbox root.
func (in *Inbox) Pending() ([]string, error) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(in.dir, entry.Name()))
	}
	return paths, nil
}

// Archive moves a swept file into processed/ or failed/, prefixing the
// import date so repeated uploads of the same filename never collide.
func (in *Inbox) Archive(path string, succeeded bool) error {
	sub := "failed"
	if succeeded {
		sub = "processed"
	}
	name := fmt.Sprintf("%s_%s", time.Now().Format("20060102-150405"), sanitizeFilename(filepath.Base(path)))
	dest := filepath.Join(in.dir, sub, name)
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("failed to archive %s: %w", path, err)
	}
	return nil
}

// sanitizeFilename strips path separators and control characters.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
}
