// Package ingest turns media arguments into local files ready for staging.
// An argument is either a local path or an http(s) URL; URLs are
// downloaded into the cache first.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/blackwell-systems/bookdesk/internal/cache"
	"github.com/blackwell-systems/bookdesk/internal/media"
)

// ErrTooLarge is returned when a download exceeds the resolver's cap.
var ErrTooLarge = errors.New("download exceeds size limit")

// Resolver fetches media arguments.
type Resolver struct {
	cache    *cache.Manager
	http     *http.Client
	maxBytes int64
	logger   *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the download client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.http = c }
}

// WithMaxBytes caps download size. 0 means unlimited.
func WithMaxBytes(n int64) Option {
	return func(r *Resolver) { r.maxBytes = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver returns a resolver downloading into c.
func NewResolver(c *cache.Manager, opts ...Option) *Resolver {
	r := &Resolver{
		cache:  c,
		http:   &http.Client{Timeout: 5 * time.Minute},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	r.logger = r.logger.Named("ingest")
	return r
}

// IsURL reports whether input names a remote file.
func IsURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// Resolve returns a described local file for input.
func (r *Resolver) Resolve(ctx context.Context, input string) (media.File, error) {
	if IsURL(input) {
		return r.download(ctx, input)
	}
	return media.Describe(media.File{Path: input})
}

// ResolveAll resolves every input in order, stopping at the first error.
func (r *Resolver) ResolveAll(ctx context.Context, inputs []string) ([]media.File, error) {
	out := make([]media.File, 0, len(inputs))
	for _, in := range inputs {
		f, err := r.Resolve(ctx, in)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *Resolver) download(ctx context.Context, rawURL string) (media.File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return media.File{}, fmt.Errorf("building request for %s: %w", rawURL, err)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return media.File{}, fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return media.File{}, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	if r.maxBytes > 0 && resp.ContentLength > r.maxBytes {
		return media.File{}, fmt.Errorf("%s: %w", rawURL, ErrTooLarge)
	}

	name := FilenameFromURL(rawURL)
	body := NewReader(resp.Body, r.maxBytes)
	stored, err := r.cache.Store(cache.Downloads, ulid.Make().String()+"-"+name, body)
	if err != nil {
		return media.File{}, fmt.Errorf("%s: %w", rawURL, err)
	}
	r.logger.Debug("downloaded", zap.String("url", rawURL), zap.Int64("bytes", body.Size()))

	return media.Describe(media.File{
		Name:     name,
		Path:     stored,
		Size:     body.Size(),
		MIMEType: declaredType(resp.Header.Get("Content-Type")),
	})
}

// declaredType keeps a server content type only when it is specific.
func declaredType(ct string) string {
	ct = strings.TrimSpace(strings.Split(ct, ";")[0])
	switch ct {
	case "", "application/octet-stream", "binary/octet-stream":
		return ""
	}
	return ct
}

// FilenameFromURL returns the last path segment of a URL, or "download".
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return "download"
	}
	return base
}
