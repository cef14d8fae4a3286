package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store copies r into the area under name and returns the final path.
// Concurrent stores never see each other's partial files: data lands in
// a private temp file that is renamed into place once complete.
func (m *Manager) Store(area, name string, r io.Reader) (string, error) {
	if err := m.EnsureDir(area); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	dest := m.Path(area, name)

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".partial-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("writing %s to cache: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		cleanup()
		return "", err
	}
	return dest, nil
}

