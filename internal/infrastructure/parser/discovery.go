package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsCollector/internal/ports"
)

var commonFeedPaths = []string{"/rss", "/feed", "/rss.xml", "/feed.xml", "/atom.xml", "/index.xml"}

var feedTypes = map[string]bool{
	"application/rss+xml":  true,
	"application/atom+xml": true,
}

// Discoverer locates feeds advertised by, or conventionally placed next to, a site.
type Discoverer struct {
	pages ports.Fetcher
	feeds *RSSScanner
}

// NewDiscoverer reuses the page fetcher for HTML and the feed scanner's client for probes.
func NewDiscoverer(pages ports.Fetcher, feeds *RSSScanner) *Discoverer {
	return &Discoverer{pages: pages, feeds: feeds}
}

// Discover returns feed URLs for pageURL: advertised alternates first, then the
// first common path that parses as a feed.
func (d *Discoverer) Discover(ctx context.Context, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid url %q", pageURL)
	}

	markup, err := d.pages.Fetch(ctx, pageURL, ports.FetchOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	found, err := AlternateFeeds(markup, base)
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return found, nil
	}

	for _, path := range commonFeedPaths {
		candidate := base.ResolveReference(&url.URL{Path: path}).String()
		raw, err := d.feeds.fetchFeed(ctx, candidate)
		if err != nil {
			continue
		}
		if _, err := gofeed.NewParser().Parse(bytes.NewReader(raw)); err == nil {
			return []string{candidate}, nil
		}
	}
	return nil, nil
}

// AlternateFeeds lists <link rel="alternate"> feed URLs in document order.
func AlternateFeeds(markup string, base *url.URL) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var out []string
	seen := map[string]bool{}
	doc.Find(`link[rel~="alternate"][href]`).Each(func(_ int, s *goquery.Selection) {
		kind := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))
		if !feedTypes[kind] {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(s.AttrOr("href", "")))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	})
	return out, nil
}
