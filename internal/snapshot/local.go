// Package snapshot archives raw page bodies that produced no recognizable
// status, so page-structure drift can be diagnosed after the fact.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local writes snapshots to the local filesystem.
type Local struct {
	baseDir string
}

// NewLocal validates the base directory, creating it if needed.
func NewLocal(baseDir string) (*Local, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("snapshot directory is required")
	}
	info, err := os.Stat(baseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create snapshot directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat snapshot directory: %w", err)
	case !info.IsDir():
		return nil, errors.New("snapshot path is not a directory")
	}
	return &Local{baseDir: baseDir}, nil
}

// Put writes one snapshot file and returns its file:// URI.
func (l *Local) Put(_ context.Context, number string, body []byte) (string, error) {
	dir := filepath.Join(l.baseDir, sanitize(number))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create snapshot subdirectory: %w", err)
	}
	path := filepath.Join(dir, time.Now().UTC().Format("20060102T150405")+".html")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return "file://" + path, nil
}

// sanitize keeps the tracking number filesystem-safe.
func sanitize(number string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, number)
}
