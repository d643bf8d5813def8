package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"NewsCollector/internal/dates"
	"NewsCollector/internal/domain"
	"NewsCollector/internal/extract"
	"NewsCollector/internal/infrastructure/fetch"
	"NewsCollector/internal/scanner"
)

const (
	maxFeedBytes = 5 << 20
	hintRunes    = 200
)

// RSSScanner reads a source's feed; items carrying a publish date skip the
// date resolver.
type RSSScanner struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	logger    *slog.Logger
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client; the feed's own XML declaration drives decoding.
func NewRSSScanner(client *http.Client, userAgent string, timeout time.Duration, logger *slog.Logger) *RSSScanner {
	if client == nil {
		client = &http.Client{}
	}
	if userAgent == "" {
		userAgent = fetch.DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RSSScanner{client: client, userAgent: userAgent, timeout: timeout, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return string(domain.ScraperRSS)
}

// Scan fetches (or replays) the feed and converts items to candidates.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) (scanner.Result, error) {
	feedURL := req.Source.Config.RSSURL
	if feedURL == "" {
		feedURL = req.Source.URL
	}

	raw := []byte(req.Markup)
	if len(raw) == 0 {
		var err error
		raw, err = s.fetchFeed(ctx, feedURL)
		if err != nil {
			return scanner.Result{}, err
		}
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return scanner.Result{}, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	base, err := url.Parse(feedURL)
	if err != nil {
		return scanner.Result{}, fmt.Errorf("invalid feed url %q: %w", feedURL, err)
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	candidates := ItemsToCandidates(feed.Items, base, now, req.Limit)
	s.debug("feed parsed", "source", req.Source.ID, "items", len(feed.Items), "candidates", len(candidates))
	return scanner.Result{Candidates: candidates, Markup: string(raw)}, nil
}

// ItemsToCandidates keeps items with a usable link, in feed order, first link wins.
func ItemsToCandidates(items []*gofeed.Item, base *url.URL, now time.Time, limit int) []domain.Candidate {
	var (
		out  []domain.Candidate
		seen = map[string]struct{}{}
	)
	for _, item := range items {
		if limit > 0 && len(out) >= limit {
			break
		}
		if item == nil {
			continue
		}

		link, ok := extract.Resolve(base, item.Link)
		if !ok {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		title := extract.CleanText(item.Title)
		if title == "" {
			continue
		}
		seen[link] = struct{}{}

		c := domain.Candidate{
			Title:    title,
			URL:      link,
			DateHint: truncate(extract.CleanText(extract.StripTags(item.Description)), hintRunes),
		}
		if t := itemTime(item); t != nil && dates.Valid(*t, now) {
			published := *t
			c.PublishedAt = &published
			c.DateSource = domain.DateObserved
		}
		out = append(out, c)
	}
	return out
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

func (s *RSSScanner) fetchFeed(ctx context.Context, feedURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &fetch.StatusError{Code: resp.StatusCode, URL: feedURL}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (s *RSSScanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
