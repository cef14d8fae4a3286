// Package api is the HTTP adapter for the bookstore backend. Every request
// carries the stored credential, every body is normalized through Envelope,
// and every failure surfaces as an *Error.
//
// Requests are single best-effort attempts: no retry and no caching.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Credentials supplies the token attached to every request.
type Credentials interface {
	Token() string
}

// Client is an authenticated backend client. Its configuration is
// read-only after New.
type Client struct {
	baseURL string
	http    *http.Client
	creds   Credentials
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. A cookie jar is
// added when the client has none.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithCredentials sets the token source.
func WithCredentials(creds Credentials) Option {
	return func(c *Client) { c.creds = creds }
}

// WithLogger sets the developer logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		// Cookie sessions are part of the credential mode.
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	c.logger = c.logger.Named("api")
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// url joins the base URL and a resource path. Paths may or may not carry a
// leading slash; the backend routes are written both ways.
func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Request sends one call and returns the normalized envelope. body may be
// nil, a *Form (multipart), or any JSON-encodable value.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*Envelope, error) {
	log := c.logger.With(zap.String("method", method), zap.String("path", path))

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Debug("request cancelled")
			return nil, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		log.Warn("request failed", zap.Error(err))
		return nil, &Error{Method: method, Path: path, Err: ErrNetwork, cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("reading response failed", zap.Error(err))
		return nil, &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Err: ErrNetwork, cause: err}
	}
	log = log.With(zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)))

	if err := checkStatus(resp.StatusCode, data); err != nil {
		err.Method, err.Path = method, path
		log.Warn("request returned error", zap.String("message", err.Message))
		return nil, err
	}

	env, err := Decode(data)
	if err != nil {
		log.Warn("undecodable response", zap.Error(err))
		return nil, &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Err: ErrUnexpectedShape, cause: err}
	}
	if !env.OK() {
		log.Warn("request rejected", zap.String("message", env.Message))
		return nil, &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Message: env.Message, Err: ErrRejected}
	}
	log.Debug("request ok")
	return env, nil
}

// Get is Request with GET and no body.
func (c *Client) Get(ctx context.Context, path string) (*Envelope, error) {
	return c.Request(ctx, http.MethodGet, path, nil)
}

// Delete is Request with DELETE and no body.
func (c *Client) Delete(ctx context.Context, path string) (*Envelope, error) {
	return c.Request(ctx, http.MethodDelete, path, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case *Form:
		reader, contentType = b.encode()
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encoding body: %w", err)
		}
		reader, contentType = bytes.NewReader(buf), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		if rc, ok := reader.(io.Closer); ok {
			_ = rc.Close()
		}
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.creds != nil {
		if tok := c.creds.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

// checkStatus returns a typed error for non-2xx responses.
func checkStatus(status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}
	e := &Error{StatusCode: status, Message: serverMessage(body)}
	switch status {
	case http.StatusUnauthorized:
		e.Err = ErrUnauthorized
	case http.StatusForbidden:
		e.Err = ErrForbidden
	case http.StatusNotFound:
		e.Err = ErrNotFound
	case http.StatusConflict:
		e.Err = ErrConflict
	default:
		e.Err = ErrServer
	}
	return e
}

// serverMessage pulls "message" or "error" out of an error body, falling
// back to short plain-text bodies.
func serverMessage(body []byte) string {
	var v struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &v); err == nil {
		if v.Message != "" {
			return v.Message
		}
		return v.Error
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 || strings.HasPrefix(s, "<") {
		return ""
	}
	return s
}

// IsUnauthorized reports whether err means the session is no longer valid.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
