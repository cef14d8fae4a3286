package media

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/oklog/ulid/v2"

	"github.com/blackwell-systems/bookdesk/internal/cache"
)

// ThumbnailPreviewer renders image files to JPEG thumbnails in the preview
// cache. Videos and PDFs preview as a file URL of the source and own no
// cache file. Handles are ULIDs and are never issued twice. With a nil
// cache every file previews as its source URL.
type ThumbnailPreviewer struct {
	cache *cache.Manager
	width int

	mu   sync.Mutex
	live map[string]string // handle -> thumbnail name, "" when none
}

// NewThumbnailPreviewer returns a previewer writing into c. Images wider
// than width are scaled down.
func NewThumbnailPreviewer(c *cache.Manager, width int) *ThumbnailPreviewer {
	if width <= 0 {
		width = 320
	}
	return &ThumbnailPreviewer{cache: c, width: width, live: make(map[string]string)}
}

// Acquire generates a preview for f.
func (p *ThumbnailPreviewer) Acquire(ctx context.Context, f File) (Preview, error) {
	if err := ctx.Err(); err != nil {
		return Preview{}, err
	}
	handle := ulid.Make().String()

	src, err := filepath.Abs(f.Path)
	if err != nil {
		return Preview{}, err
	}
	pv := Preview{Handle: handle, URL: "file://" + src}
	thumb := ""

	if p.cache != nil && Image.Accepts(f.MIMEType) {
		img, err := imaging.Open(f.Path, imaging.AutoOrientation(true))
		if err != nil {
			return Preview{}, fmt.Errorf("decoding %s: %w", f.Name, err)
		}
		if img.Bounds().Dx() > p.width {
			img = imaging.Resize(img, p.width, 0, imaging.Lanczos)
		}
		if err := p.cache.EnsureDir(cache.Previews); err != nil {
			return Preview{}, err
		}
		path := p.cache.PreviewPath(handle)
		if err := imaging.Save(img, path, imaging.JPEGQuality(80)); err != nil {
			return Preview{}, fmt.Errorf("saving preview: %w", err)
		}
		thumb = filepath.Base(path)
		pv.URL = "file://" + path
	}

	p.mu.Lock()
	p.live[handle] = thumb
	p.mu.Unlock()
	return pv, nil
}

// Release disposes of a preview. A second release of the same handle
// returns ErrReleased.
func (p *ThumbnailPreviewer) Release(pv Preview) error {
	p.mu.Lock()
	thumb, ok := p.live[pv.Handle]
	delete(p.live, pv.Handle)
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrReleased, pv.Handle)
	}
	if thumb == "" {
		return nil
	}
	return p.cache.Remove(cache.Previews, thumb)
}

// Live returns how many previews are outstanding.
func (p *ThumbnailPreviewer) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}
