package dates

import (
	"context"
	"log/slog"
	"time"

	"NewsCollector/internal/ports"
)

const defaultPageTimeout = 10 * time.Second

// Request describes one article whose publish date is needed.
type Request struct {
	URL string
	// Context is the listing text around the link, nearest text first.
	Context string
	// Selector is the source-specific date selector for the article page, if any.
	Selector string
	Encoding string
	// Now bounds every result; relative phrases are resolved against it.
	Now time.Time
}

// Resolver applies the date strategies in priority order.
type Resolver struct {
	fetcher ports.Fetcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewResolver wires the fetcher used for article-page lookups. A nil fetcher
// disables the page strategy.
func NewResolver(fetcher ports.Fetcher, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}
	return &Resolver{fetcher: fetcher, timeout: timeout, logger: logger}
}

// Resolve returns the first strategy that yields a valid date: URL, listing
// context, then the article page itself.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Resolution, bool) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	if res, ok := FromURL(req.URL, now); ok {
		return res, true
	}
	if res, ok := FromContext(req.Context, now); ok {
		return res, true
	}
	if r == nil || r.fetcher == nil {
		return Resolution{}, false
	}

	markup, err := r.fetcher.Fetch(ctx, req.URL, ports.FetchOptions{Timeout: r.timeout, Encoding: req.Encoding})
	if err != nil {
		r.debug("article page fetch failed", "url", req.URL, "error", err)
		return Resolution{}, false
	}
	return FromDocument(markup, req.URL, req.Selector, now)
}

func (r *Resolver) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
