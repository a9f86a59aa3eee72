package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MarkerStore records which experiments have completed successfully.
// A marker is a boolean fact keyed by experiment name: present means
// "this configuration finished with exit status 0 at some point".
// The driver only ever creates markers; invalidation is an operator
// action outside this program.
type MarkerStore interface {
	Exists(name string) (bool, error)
	Mark(name string) error
}

// fileMarkers stores markers as empty files under a root directory,
// one per experiment name. Names may contain path separators, so a
// marker for "cifar10/sym20" lands at <root>/cifar10/sym20.
type fileMarkers struct {
	root string
}

func newFileMarkers(root string) *fileMarkers {
	return &fileMarkers{root: root}
}

func (m *fileMarkers) path(name string) string {
	return filepath.Join(m.root, filepath.FromSlash(name))
}

func (m *fileMarkers) Exists(name string) (bool, error) {
	_, err := os.Stat(m.path(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat marker for %s: %w", name, err)
}

func (m *fileMarkers) Mark(name string) error {
	path := m.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure marker directory for %s: %w", name, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("write marker for %s: %w", name, err)
	}
	return f.Close()
}

// MarkedAt reports when a marker was written, for status output.
func (m *fileMarkers) MarkedAt(name string) (time.Time, bool, error) {
	info, err := os.Stat(m.path(name))
	if err == nil {
		return info.ModTime(), true, nil
	}
	if os.IsNotExist(err) {
		return time.Time{}, false, nil
	}
	return time.Time{}, false, fmt.Errorf("stat marker for %s: %w", name, err)
}
