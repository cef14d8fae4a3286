package util

import (
	"os"
	"path/filepath"
)

// EnsureParent creates the directory that will hold path.
func EnsureParent(path string, perm os.FileMode) error {
	return os.MkdirAll(filepath.Dir(path), perm)
}
