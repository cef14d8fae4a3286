package cache_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/blackwell-systems/bookdesk/internal/cache"
)

func TestPath_Layout(t *testing.T) {
	m := cache.New("/base")
	got := m.Path(cache.Downloads, "cover.png")
	want := filepath.Join("/base", "downloads", "cover.png")
	if got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestPath_StripsDirectories(t *testing.T) {
	m := cache.New("/base")
	got := m.Path(cache.Downloads, "../../etc/passwd")
	want := filepath.Join("/base", "downloads", "passwd")
	if got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestPreviewPath(t *testing.T) {
	m := cache.New("/base")
	got := m.PreviewPath("01HX")
	want := filepath.Join("/base", "previews", "01HX.jpg")
	if got != want {
		t.Errorf("PreviewPath() = %q, want %q", got, want)
	}
}

func TestStore_WritesFile(t *testing.T) {
	m := cache.New(t.TempDir())

	path, err := m.Store(cache.Downloads, "a.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want %q", data, "hello")
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("downloads holds %d entries, want only a.txt", len(entries))
	}
}

func TestStore_FailedCopyLeavesNothing(t *testing.T) {
	m := cache.New(t.TempDir())
	_, err := m.Store(cache.Downloads, "b.txt", iotest.ErrReader(errors.New("boom")))
	if err == nil {
		t.Fatal("Store with failing reader succeeded")
	}
	entries, _ := os.ReadDir(filepath.Dir(m.Path(cache.Downloads, "b.txt")))
	if len(entries) != 0 {
		t.Errorf("downloads holds %d entries after failure, want 0", len(entries))
	}
}

func TestRemove_NonExistent(t *testing.T) {
	m := cache.New(t.TempDir())
	if err := m.Remove(cache.Previews, "gone.jpg"); err != nil {
		t.Errorf("Remove of missing file: %v", err)
	}
}

func TestSweep(t *testing.T) {
	m := cache.New(t.TempDir())
	for _, n := range []string{"a.jpg", "b.jpg"} {
		if _, err := m.Store(cache.Previews, n, strings.NewReader("x")); err != nil {
			t.Fatal(err)
		}
	}
	n, err := m.Sweep(cache.Previews)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Sweep removed %d, want 2", n)
	}
	if _, err := os.Stat(m.Path(cache.Previews, "a.jpg")); !os.IsNotExist(err) {
		t.Error("a.jpg still present after Sweep")
	}
}

func TestSweep_MissingArea(t *testing.T) {
	m := cache.New(t.TempDir())
	n, err := m.Sweep(cache.Previews)
	if err != nil || n != 0 {
		t.Errorf("Sweep on empty cache = (%d, %v), want (0, nil)", n, err)
	}
}
