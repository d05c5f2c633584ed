// Package fetch retrieves HTML documents for querying.
//
// Two fetchers are provided:
//   - HTTP:    a plain GET with size and content-type checks
//   - Browser: a headless Chrome tab driven by Rod, for pages that build
//     their markup with JavaScript
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher returns the markup found at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

var (
	// ErrScheme is returned for URLs that are not http or https.
	ErrScheme = errors.New("fetch: unsupported URL scheme")

	// ErrStatus is returned for non-2xx responses.
	ErrStatus = errors.New("fetch: unexpected status")

	// ErrTooLarge is returned when a body exceeds the configured limit.
	ErrTooLarge = errors.New("fetch: response too large")

	// ErrNotHTML is returned when the response declares a non-HTML type.
	ErrNotHTML = errors.New("fetch: not an HTML document")
)

// CheckURL validates that rawURL is an absolute http(s) URL.
func CheckURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrScheme, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("fetch: missing host in %q", rawURL)
	}
	return u, nil
}

// HTTPConfig configures an HTTP fetcher.
type HTTPConfig struct {
	// Client defaults to a client with Timeout.
	Client *http.Client

	// Timeout for the whole request (default: 30s).
	Timeout time.Duration

	// MaxBytes is the largest body accepted (default: 10 MB).
	MaxBytes int64

	// UserAgent sent with each request.
	UserAgent string

	// BlockPrivate refuses URLs and connections that reach loopback,
	// private or link-local addresses. Ignored when Client is set.
	BlockPrivate bool

	Logger *slog.Logger
}

func (c *HTTPConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "domselect/1.0"
	}
	switch {
	case c.Client != nil:
	case c.BlockPrivate:
		c.Client = guardedClient(c.Timeout)
	default:
		c.Client = &http.Client{Timeout: c.Timeout}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// HTTP fetches pages with a plain GET.
type HTTP struct {
	cfg HTTPConfig
}

// NewHTTP creates an HTTP fetcher.
func NewHTTP(cfg HTTPConfig) *HTTP {
	cfg.defaults()
	return &HTTP{cfg: cfg}
}

// Fetch implements Fetcher.
func (h *HTTP) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := CheckURL(rawURL)
	if err != nil {
		return nil, err
	}
	if h.cfg.BlockPrivate {
		if err := CheckPublic(ctx, u); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", h.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	start := time.Now()
	resp, err := h.cfg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: get %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d from %s", ErrStatus, resp.StatusCode, u.Redacted())
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !isHTMLType(ct) {
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	if int64(len(body)) > h.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, h.cfg.MaxBytes)
	}
	h.cfg.Logger.DebugContext(ctx, "fetch: http done",
		"url", u.Redacted(), "bytes", len(body), "duration", time.Since(start))
	return body, nil
}

func isHTMLType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "html") || strings.HasPrefix(ct, "text/plain")
}
