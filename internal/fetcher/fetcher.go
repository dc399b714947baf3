// Package fetcher retrieves a URL's raw bytes and content type. It is a
// single-page fetch with a hard timeout and size cap, not a crawler: one
// GET, bounded, or a typed FetchError.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/seen-labs/seen/pkg/types"
)

// Browser-style headers. Some sites refuse to serve obvious bots; the
// original archive always fetched with these.
const (
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
)

// Result holds the raw outcome of a successful fetch.
type Result struct {
	Body        []byte
	ContentType string // media type only, parameters stripped
	Size        int64
}

// Fetcher performs bounded single-page fetches.
type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// New creates a Fetcher. Non-positive bounds fall back to 30s / 10 MiB.
func New(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

// Fetch retrieves the URL's bytes and content type. Only http and https are
// supported. Exceeding the byte cap, a non-2xx status, or a timeout abort
// with the corresponding FetchError; nothing is retried here.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &types.FetchError{Reason: types.FetchUnsupportedScheme, URL: rawURL, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &types.FetchError{Reason: types.FetchUnsupportedScheme, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &types.FetchError{Reason: fetchReason(ctx, err), URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.FetchError{Reason: types.FetchBadStatus, URL: rawURL, Status: resp.StatusCode}
	}

	// Reject declared-oversize responses before reading the body.
	if resp.ContentLength > f.maxBytes {
		return nil, &types.FetchError{Reason: types.FetchTooLarge, URL: rawURL}
	}

	// Read one byte past the cap to distinguish exactly-at-cap from over.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &types.FetchError{Reason: fetchReason(ctx, err), URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &types.FetchError{Reason: types.FetchTooLarge, URL: rawURL}
	}

	return &Result{
		Body:        body,
		ContentType: mediaType(resp.Header.Get("Content-Type")),
		Size:        int64(len(body)),
	}, nil
}

// fetchReason labels a fetch failure: timeout only when the deadline was
// the cause, network for everything else (refused connections, resets,
// TLS handshake failures).
func fetchReason(ctx context.Context, err error) types.FetchReason {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || os.IsTimeout(err) {
		return types.FetchTimeout
	}
	return types.FetchNetwork
}

// mediaType strips parameters from a Content-Type header value. A missing
// header is treated as an opaque binary payload.
func mediaType(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
