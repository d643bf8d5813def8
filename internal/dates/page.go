package dates

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"

	"NewsCollector/internal/domain"
)

const (
	contentScanRunes = 1000
	elementTextRunes = 120
	maxElementsProbe = 20
)

var metaSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[name="article:published_time"]`,
	`meta[name="pubdate"]`,
	`meta[name="publishdate"]`,
	`meta[name="publish_date"]`,
	`meta[itemprop="datePublished"]`,
	`meta[property="og:published_time"]`,
	`meta[name="og:published_time"]`,
	`[itemprop="datePublished"]`,
}

var jsonLDDate = regexp.MustCompile(`"datePublished"\s*:\s*"([^"]+)"`)

type classProbe struct {
	selector string
	// relativeOnly accepts only 今天/昨天/前天 HH:MM style text.
	relativeOnly bool
}

var classProbes = []classProbe{
	{selector: "#pubtime_baidu, .pubtime, #pubtime, #pub_date, #publish_time"},
	{selector: `[class*="pub-date"], [class*="pub_date"], [class*="pubdate"], [class*="publish-date"], [class*="publish_date"], [class*="publishdate"], [class*="post-date"], [class*="post_date"], [class*="article-date"], [class*="article_date"]`},
	{selector: `span.time, [class*="date"], [class*="time"]`},
	{selector: "em"},
	{selector: `div[class*="author-date"], [class*="info"], [class*="meta"], [class*="author"]`},
	{selector: "span", relativeOnly: true},
}

var contentSelectors = []string{
	"article",
	`div[class*="content"]`,
	`div[class*="article"]`,
	`div[class*="post"]`,
}

var dayClockExpr = regexp.MustCompile(`(今天|昨天|前天)\s*\d{1,2}[:：]\d{2}`)

// FromDocument searches an article page: custom selector, metadata, JSON-LD,
// <time datetime>, date-bearing classes, and finally the main content text.
func FromDocument(markup, pageURL, selector string, now time.Time) (Resolution, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Resolution{}, false
	}

	if selector != "" {
		if res, ok := fromSelection(doc.Find(selector), now, false); ok {
			res.Strategy = StrategySelector
			return res, true
		}
	}
	if res, ok := fromMeta(doc, now); ok {
		return res, true
	}
	if res, ok := fromJSONLD(doc, now); ok {
		return res, true
	}
	if v, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if t, ok := parseTimestamp(v, now); ok {
			return Resolution{Time: t, Source: domain.DateObserved, Strategy: StrategyTimeTag}, true
		}
	}
	for _, probe := range classProbes {
		if res, ok := fromSelection(doc.Find(probe.selector), now, probe.relativeOnly); ok {
			res.Strategy = StrategyClass
			return res, true
		}
	}
	if res, ok := FromContext(mainText(doc, markup, pageURL), now); ok {
		res.Source = domain.DateInferred
		res.Strategy = StrategyContent
		return res, true
	}
	return Resolution{}, false
}

func fromMeta(doc *goquery.Document, now time.Time) (Resolution, bool) {
	for _, sel := range metaSelectors {
		var (
			res   Resolution
			found bool
		)
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			value := attrOrText(s, "content", "datetime")
			if t, ok := parseTimestamp(value, now); ok {
				res = Resolution{Time: t, Source: domain.DateObserved, Strategy: StrategyMeta}
				found = true
				return false
			}
			return true
		})
		if found {
			return res, true
		}
	}
	return Resolution{}, false
}

func fromJSONLD(doc *goquery.Document, now time.Time) (Resolution, bool) {
	var (
		res   Resolution
		found bool
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		m := jsonLDDate.FindStringSubmatch(s.Text())
		if m == nil {
			return true
		}
		if t, ok := parseTimestamp(m[1], now); ok {
			res = Resolution{Time: t, Source: domain.DateObserved, Strategy: StrategyJSONLD}
			found = true
			return false
		}
		return true
	})
	return res, found
}

// fromSelection inspects up to maxElementsProbe elements, preferring machine-readable attributes.
func fromSelection(sel *goquery.Selection, now time.Time, relativeOnly bool) (Resolution, bool) {
	var (
		res   Resolution
		found bool
	)
	sel.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxElementsProbe {
			return false
		}
		text := truncateRunes(collapse(s.Text()), elementTextRunes)

		if relativeOnly {
			if !dayClockExpr.MatchString(normalize(text)) {
				return true
			}
			if t, ok := Relative(text, now); ok {
				res, found = Resolution{Time: t, Source: domain.DateInferred}, true
				return false
			}
			return true
		}

		for _, attr := range []string{"datetime", "content"} {
			if v, ok := s.Attr(attr); ok {
				if t, ok := parseTimestamp(v, now); ok {
					res, found = Resolution{Time: t, Source: domain.DateObserved}, true
					return false
				}
			}
		}
		if t, src, ok := Absolute(text, now); ok {
			res, found = Resolution{Time: t, Source: src}, true
			return false
		}
		if t, ok := Relative(text, now); ok {
			res, found = Resolution{Time: t, Source: domain.DateInferred}, true
			return false
		}
		if t, ok := parseTimestamp(text, now); ok {
			res, found = Resolution{Time: t, Source: domain.DateObserved}, true
			return false
		}
		return true
	})
	return res, found
}

// mainText returns the leading part of the readable article body.
func mainText(doc *goquery.Document, markup, pageURL string) string {
	var text string
	if u, err := url.Parse(pageURL); err == nil {
		if article, err := readability.FromReader(strings.NewReader(markup), u); err == nil {
			text = collapse(article.TextContent)
		}
	}
	if text == "" {
		for _, sel := range contentSelectors {
			if s := doc.Find(sel).First(); s.Length() > 0 {
				text = collapse(s.Text())
				break
			}
		}
	}
	return truncateRunes(text, contentScanRunes)
}

// parseTimestamp parses machine-oriented values (ISO 8601, RFC 1123, unix) in now's location.
func parseTimestamp(value string, now time.Time) (time.Time, bool) {
	value = normalize(value)
	if value == "" || utf8.RuneCountInString(value) > 64 {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(value, now.Location())
	if err != nil {
		return time.Time{}, false
	}
	t = t.In(now.Location())
	if !inRange(t, now) {
		return time.Time{}, false
	}
	return t, true
}

func attrOrText(s *goquery.Selection, attrs ...string) string {
	for _, a := range attrs {
		if v, ok := s.Attr(a); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return s.Text()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
