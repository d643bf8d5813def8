// Package classify assigns an industry to an article, preferring an external
// text classifier and falling back to the source's configured industry.
package classify

import (
	"context"
	"log/slog"
	"strings"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

// Unclassified is the answer collaborators give when nothing fits.
const Unclassified = "未分类"

// Classifier applies the two-tier policy per article.
type Classifier struct {
	text   ports.TextClassifier
	logger *slog.Logger
}

// New wires an optional text classifier; nil means always use the fallback.
func New(text ports.TextClassifier, logger *slog.Logger) *Classifier {
	return &Classifier{text: text, logger: logger}
}

// Classify returns the industry ID chosen by the collaborator, or fallback when
// it is absent, fails, or does not name exactly one candidate.
func (c *Classifier) Classify(ctx context.Context, title string, summary *string, candidates []domain.Industry, fallback *string) *string {
	if c == nil || c.text == nil || len(candidates) == 0 {
		return fallback
	}

	text := title
	if summary != nil && strings.TrimSpace(*summary) != "" {
		text = title + "\n" + *summary
	}

	answer, err := c.text.Classify(ctx, text, candidates)
	if err != nil {
		c.warn("text classifier failed, using source industry", "error", err)
		return fallback
	}

	if industry, ok := Match(answer, candidates); ok {
		id := industry.ID
		return &id
	}
	c.debug("classifier answer not accepted", "answer", answer)
	return fallback
}

// Match accepts an answer only when it names exactly one candidate. An exact
// name wins; otherwise exactly one candidate name must appear in the answer.
func Match(answer string, candidates []domain.Industry) (domain.Industry, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" || answer == Unclassified || strings.EqualFold(answer, "unclassified") {
		return domain.Industry{}, false
	}

	for _, ind := range candidates {
		if ind.Name == answer {
			return ind, true
		}
	}

	var (
		hit   domain.Industry
		count int
	)
	for _, ind := range candidates {
		if ind.Name != "" && strings.Contains(answer, ind.Name) {
			hit = ind
			count++
		}
	}
	if count != 1 {
		return domain.Industry{}, false
	}
	return hit, true
}

func (c *Classifier) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Classifier) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
