package util_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"

	"github.com/blackwell-systems/bookdesk/internal/util"
)

func TestEnsureParent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a", "b", "session.db")
	if err := util.EnsureParent(file, 0700); err != nil {
		t.Fatalf("EnsureParent: %v", err)
	}
	fi, err := os.Stat(filepath.Dir(file))
	if err != nil {
		t.Fatalf("Stat after EnsureParent: %v", err)
	}
	if !fi.IsDir() {
		t.Error("parent is not a directory")
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Errorf("EnsureParent created the file itself: %v", err)
	}
}

func TestEnsureParent_ExistingDir(t *testing.T) {
	dir := t.TempDir()
	if err := util.EnsureParent(filepath.Join(dir, "config.yml"), 0755); err != nil {
		t.Errorf("EnsureParent on existing dir: %v", err)
	}
}

func TestInitColor_NoColorFlag(t *testing.T) {
	saved := color.NoColor
	defer func() { color.NoColor = saved }()

	color.NoColor = false
	util.InitColor(true)
	if !color.NoColor {
		t.Error("InitColor(true) left color enabled")
	}
}

func TestIsTTY_UnderTest(t *testing.T) {
	// go test pipes stdout, so it is never a terminal here.
	if util.IsTTY() {
		t.Skip("stdout is a terminal")
	}
	saved := color.NoColor
	defer func() { color.NoColor = saved }()

	color.NoColor = false
	util.InitColor(false)
	if !color.NoColor {
		t.Error("InitColor(false) without a terminal left color enabled")
	}
}
