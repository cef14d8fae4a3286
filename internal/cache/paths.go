package cache

import (
	"os"
	"path/filepath"
)

// Areas under the cache root.
const (
	Previews  = "previews"
	Downloads = "downloads"
)

// Manager handles the local preview and download cache.
type Manager struct {
	baseDir string
}

// New creates a cache Manager rooted at baseDir.
func New(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

// Path returns the full cache path for a file in an area.
// Layout: <baseDir>/<area>/<name>
func (m *Manager) Path(area, name string) string {
	return filepath.Join(m.baseDir, area, filepath.Base(name))
}

// PreviewPath returns where the thumbnail for a preview handle lives.
func (m *Manager) PreviewPath(handle string) string {
	return m.Path(Previews, handle+".jpg")
}

// EnsureDir creates the directory for an area.
func (m *Manager) EnsureDir(area string) error {
	return os.MkdirAll(filepath.Join(m.baseDir, area), 0750)
}

// Remove deletes the cached file if it exists.
func (m *Manager) Remove(area, name string) error {
	err := os.Remove(m.Path(area, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Sweep removes every file in an area and returns how many were removed.
// Previews left behind by a crashed session are swept on startup.
func (m *Manager) Sweep(area string) (int, error) {
	dir := filepath.Join(m.baseDir, area)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return n, err
		}
		n++
	}
	return n, nil
}
