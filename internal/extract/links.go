package extract

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"NewsCollector/internal/domain"
)

const (
	minTitleRunes = 10
	maxTitleRunes = 200
	contextRunes  = 200
)

var assetExpr = regexp.MustCompile(`(?i)\.(css|js|png|jpg|jpeg|gif|svg|ico|pdf|zip)$`)

type anchor struct {
	href  string
	text  string
	start int
	end   int
}

// Links scans markup for anchors and returns candidates in document order.
// The first occurrence of a URL wins. limit <= 0 means no limit.
func Links(markup, baseURL string, limit int) []domain.Candidate {
	origin, ok := originOf(baseURL)
	if !ok {
		return nil
	}

	var (
		out  []domain.Candidate
		seen = map[string]struct{}{}
	)
	for _, a := range scanAnchors(markup) {
		if limit > 0 && len(out) >= limit {
			break
		}

		title := CleanText(a.text)
		if !titleLengthOK(title) {
			continue
		}

		resolved, ok := Resolve(origin, a.href)
		if !ok {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}

		out = append(out, domain.Candidate{
			Title:    title,
			URL:      resolved,
			DateHint: contextWindow(markup, a.start, a.end, title),
		})
	}
	return out
}

// scanAnchors walks the token stream keeping byte offsets so the raw markup
// around each anchor can be recovered later.
func scanAnchors(markup string) []anchor {
	z := html.NewTokenizer(strings.NewReader(markup))

	var (
		anchors []anchor
		current *anchor
		text    strings.Builder
		offset  int
	)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return anchors
		}
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" {
				continue
			}
			href := ""
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "href" {
					href = strings.TrimSpace(string(val))
				}
			}
			// an unclosed previous anchor is abandoned
			current = &anchor{href: href, start: start}
			text.Reset()
		case html.TextToken:
			if current != nil {
				text.Write(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) != "a" || current == nil {
				continue
			}
			current.text = text.String()
			current.end = offset
			if current.href != "" {
				anchors = append(anchors, *current)
			}
			current = nil
		}
	}
}

// CleanText collapses whitespace and decodes any entities left after tokenizing,
// so double-encoded markup such as &amp;quot; ends up as a literal quote.
func CleanText(s string) string {
	return collapse(html.UnescapeString(collapse(s)))
}

// Resolve turns href into an absolute http(s) URL relative to origin.
func Resolve(origin *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	switch {
	case href == "", strings.HasPrefix(href, "#"):
		return "", false
	case strings.HasPrefix(lower, "javascript:"), strings.HasPrefix(lower, "mailto:"),
		strings.HasPrefix(lower, "tel:"), strings.HasPrefix(lower, "data:"):
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := origin.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if assetExpr.MatchString(abs.Path) {
		return "", false
	}
	return canonical(abs), true
}

// CanonicalURL normalizes scheme and host case and drops the fragment.
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return canonical(u), nil
}

func canonical(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}

func originOf(baseURL string) (*url.URL, bool) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || base.Host == "" {
		return nil, false
	}
	return &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}, true
}

func titleLengthOK(title string) bool {
	n := utf8.RuneCountInString(title)
	return n >= minTitleRunes && n <= maxTitleRunes
}

// contextWindow returns the text within contextRunes of the anchor, ordered by
// distance from it, so the closest date-looking text is matched first.
func contextWindow(markup string, start, end int, title string) string {
	from := backRunes(markup, start, contextRunes)
	to := forwardRunes(markup, end, contextRunes)

	before := textRuns(markup[from:start])
	after := textRuns(markup[end:to])
	beforeLen := start - from

	parts := make([]string, 0, len(before)+len(after))
	i, j := len(before)-1, 0
	for i >= 0 || j < len(after) {
		takeBefore := j >= len(after) ||
			(i >= 0 && beforeLen-before[i].end <= after[j].start)
		if takeBefore {
			parts = append(parts, before[i].text)
			i--
		} else {
			parts = append(parts, after[j].text)
			j++
		}
	}

	text := collapse(strings.Join(parts, " "))
	if title != "" {
		text = collapse(strings.ReplaceAll(text, title, " "))
	}
	return text
}

type textRun struct {
	text  string
	start int
	end   int
}

// textRuns lists the non-blank text tokens of a fragment with their byte offsets.
func textRuns(fragment string) []textRun {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var (
		runs   []textRun
		skip   bool
		offset int
	)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return runs
		}
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			skip = string(name) == "script" || string(name) == "style"
		case html.EndTagToken:
			skip = false
		case html.TextToken:
			if skip {
				continue
			}
			if text := collapse(string(z.Text())); text != "" {
				runs = append(runs, textRun{text: text, start: start, end: offset})
			}
		}
	}
}

// StripTags returns the text content of a markup fragment, one space between text runs.
func StripTags(fragment string) string {
	runs := textRuns(fragment)
	parts := make([]string, len(runs))
	for i, r := range runs {
		parts[i] = r.text
	}
	return strings.Join(parts, " ")
}

func backRunes(s string, i, n int) int {
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return i
}

func forwardRunes(s string, i, n int) int {
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
