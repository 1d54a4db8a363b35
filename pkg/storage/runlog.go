package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunLogStore persists captured algorithm output on disk under a base
// directory, one file per dispatch run.
type RunLogStore struct {
	baseDir string
}

// NewRunLogStore ensures the base directory exists and returns a handle.
func NewRunLogStore(baseDir string) (*RunLogStore, error) {
	if baseDir == "" {
		baseDir = "./run-logs"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log directory: %w", err)
	}
	return &RunLogStore{baseDir: baseDir}, nil
}

// Save writes the combined output of a run keyed by run ID and returns the
// file name.
func (s *RunLogStore) Save(runID string, data []byte) (string, error) {
	name := runID + ".log"
	if err := os.WriteFile(s.resolve(name), data, 0o644); err != nil {
		return "", fmt.Errorf("write run log: %w", err)
	}
	return name, nil
}

// Open returns a read-only handle for a stored run log.
func (s *RunLogStore) Open(name string) (*os.File, error) {
	file, err := os.Open(s.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return file, nil
}

// CleanupOlderThan removes logs older than the provided TTL and returns
// deleted names.
func (s *RunLogStore) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup run logs: %w", err)
	}
	return deleted, nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *RunLogStore) Path(name string) string {
	return s.resolve(name)
}

func (s *RunLogStore) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.baseDir, name)
}
