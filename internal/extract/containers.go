package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsCollector/internal/domain"
)

// Selectors describe a source-specific listing layout.
type Selectors struct {
	Container string
	Title     string
	Link      string
}

// FromContainers extracts one candidate per matched container element. The
// container's own text becomes the date hint.
func FromContainers(markup, baseURL string, sel Selectors, limit int) ([]domain.Candidate, error) {
	if strings.TrimSpace(sel.Container) == "" {
		return nil, fmt.Errorf("container selector is empty")
	}
	origin, ok := originOf(baseURL)
	if !ok {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	linkSel := sel.Link
	if linkSel == "" {
		linkSel = "a[href]"
	}

	var (
		out  []domain.Candidate
		seen = map[string]struct{}{}
	)
	doc.Find(sel.Container).EachWithBreak(func(_ int, c *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}

		link := c.Find(linkSel).First()
		if link.Length() == 0 && goquery.NodeName(c) == "a" {
			link = c
		}
		href, exists := link.Attr("href")
		if !exists {
			return true
		}

		titleNode := link
		if sel.Title != "" {
			if t := c.Find(sel.Title).First(); t.Length() > 0 {
				titleNode = t
			}
		}
		title := CleanText(titleNode.Text())
		if !titleLengthOK(title) {
			return true
		}

		resolved, ok := Resolve(origin, href)
		if !ok {
			return true
		}
		if _, dup := seen[resolved]; dup {
			return true
		}
		seen[resolved] = struct{}{}

		hint := strings.ReplaceAll(collapse(c.Text()), title, " ")
		out = append(out, domain.Candidate{
			Title:    title,
			URL:      resolved,
			DateHint: collapse(hint),
		})
		return true
	})

	return out, nil
}
