package usecase

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/extract"
	"NewsCollector/internal/ports"
)

// Enrichment is everything computed about a candidate before persistence.
type Enrichment struct {
	PublishDate time.Time
	DateSource  domain.DateSource
	Summary     *string
	Score       domain.Score
	IndustryID  *string
	CreatedAt   time.Time
}

// Gate inserts only novel articles, keyed by the hash of their canonical URL.
type Gate struct {
	storage ports.Storage
	newID   func() string
}

// NewGate wires storage and the article ID generator.
func NewGate(storage ports.Storage, newID func() string) *Gate {
	return &Gate{storage: storage, newID: newID}
}

// URLHash is the md5 hex digest of the canonical form of rawURL.
func URLHash(rawURL string) string {
	canonical, err := extract.CanonicalURL(rawURL)
	if err != nil {
		canonical = rawURL
	}
	sum := md5.Sum([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Persist stores the candidate unless its hash already exists. A duplicate,
// whether found up front or lost to a concurrent insert, reports false without error.
func (g *Gate) Persist(ctx context.Context, c domain.Candidate, src domain.Source, e Enrichment) (bool, error) {
	hash := URLHash(c.URL)

	existing, err := g.storage.FindArticleByURLHash(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", hash, err)
	}
	if existing != nil {
		return false, nil
	}

	dateSource := e.DateSource
	if dateSource == "" {
		dateSource = domain.DateFallback
	}

	article := domain.Article{
		ID:          g.newID(),
		SourceID:    src.ID,
		IndustryID:  e.IndustryID,
		Title:       c.Title,
		URL:         c.URL,
		URLHash:     hash,
		PublishDate: e.PublishDate,
		DateSource:  dateSource,
		Summary:     e.Summary,
		Score:       e.Score,
		Priority:    domain.PriorityMedium,
		CreatedAt:   e.CreatedAt,
	}

	inserted, err := g.storage.InsertArticle(ctx, article)
	if err != nil {
		return false, err
	}
	return inserted, nil
}
