package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/extract"
	"NewsCollector/internal/ports"
	"NewsCollector/internal/scanner"
)

// ListingScanner fetches an HTML listing page and extracts candidate links,
// either by scanning every anchor or through the source's container selectors.
type ListingScanner struct {
	fetcher ports.Fetcher
	timeout time.Duration
	custom  bool
	logger  *slog.Logger
}

var _ scanner.Scanner = (*ListingScanner)(nil)

// NewGenericScanner scans all anchors on the listing page.
func NewGenericScanner(fetcher ports.Fetcher, timeout time.Duration, logger *slog.Logger) *ListingScanner {
	return &ListingScanner{fetcher: fetcher, timeout: timeout, logger: logger}
}

// NewCustomScanner scans the source's article containers; it degrades to the
// generic scan when the selectors match nothing.
func NewCustomScanner(fetcher ports.Fetcher, timeout time.Duration, logger *slog.Logger) *ListingScanner {
	return &ListingScanner{fetcher: fetcher, timeout: timeout, custom: true, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *ListingScanner) Name() string {
	if s.custom {
		return string(domain.ScraperCustom)
	}
	return string(domain.ScraperGeneric)
}

// Scan fetches (or replays) the listing and extracts up to req.Limit candidates.
func (s *ListingScanner) Scan(ctx context.Context, req scanner.Request) (scanner.Result, error) {
	markup := req.Markup
	if markup == "" {
		if s.fetcher == nil {
			return scanner.Result{}, fmt.Errorf("listing fetcher is not configured")
		}
		var err error
		markup, err = s.fetcher.Fetch(ctx, req.Source.URL, ports.FetchOptions{
			Timeout:  s.timeout,
			Encoding: req.Source.Config.Encoding,
		})
		if err != nil {
			return scanner.Result{}, err
		}
	}

	if s.custom && req.Source.Config.ArticleContainer != "" {
		cfg := req.Source.Config
		candidates, err := extract.FromContainers(markup, req.Source.URL, extract.Selectors{
			Container: cfg.ArticleContainer,
			Title:     cfg.TitleSelector,
			Link:      cfg.LinkSelector,
		}, req.Limit)
		if err != nil {
			return scanner.Result{}, fmt.Errorf("container extraction: %w", err)
		}
		if len(candidates) > 0 {
			return scanner.Result{Candidates: candidates, Markup: markup}, nil
		}
		s.debug("containers matched nothing, scanning all links", "source", req.Source.ID, "container", cfg.ArticleContainer)
	}

	return scanner.Result{
		Candidates: extract.Links(markup, req.Source.URL, req.Limit),
		Markup:     markup,
	}, nil
}

func (s *ListingScanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
