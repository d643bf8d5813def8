package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"

	"NewsCollector/internal/ports"
)

const (
	// DefaultUserAgent mimics a desktop browser; several sources refuse bot agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	acceptHeader     = "text/html,application/xhtml+xml,application/xml;q=0.9"
	defaultTimeout   = 30 * time.Second
	maxBodyBytes     = 5 << 20
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Fetcher downloads pages and decodes them to UTF-8.
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

var _ ports.Fetcher = (*Fetcher)(nil)

// New wires an HTTP client; timeout is the default per-call deadline (30s when zero).
func New(client *http.Client, userAgent string, timeout time.Duration) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{client: client, userAgent: userAgent, timeout: timeout}
}

// Fetch performs a single GET. Failures are not retried.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string, opts ports.FetchOptions) (string, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &StatusError{Code: resp.StatusCode, URL: pageURL}
	}

	body, err := decodeBody(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"), opts.Encoding)
	if err != nil {
		return "", err
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read body %s: %w", pageURL, err)
	}
	return string(raw), nil
}

func decodeBody(r io.Reader, contentType, override string) (io.Reader, error) {
	if override != "" {
		enc, err := htmlindex.Get(override)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", override, err)
		}
		return enc.NewDecoder().Reader(r), nil
	}

	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	return decoded, nil
}
