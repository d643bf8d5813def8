package ports

import (
	"context"
	"time"

	"NewsCollector/internal/domain"
)

// Fetcher retrieves raw page markup.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (string, error)
}

// FetchOptions tunes a single fetch.
type FetchOptions struct {
	Timeout time.Duration
	// Encoding overrides charset detection (e.g. "gbk").
	Encoding string
}

// Storage is the relational sink for sources, articles and run logs.
type Storage interface {
	FindArticleByURLHash(ctx context.Context, hash string) (*domain.Article, error)
	// ExistingURLHashes reports which of the given hashes are already stored.
	ExistingURLHashes(ctx context.Context, hashes []string) (map[string]bool, error)
	// InsertArticle reports false when an article with the same hash already exists.
	InsertArticle(ctx context.Context, article domain.Article) (bool, error)
	UpdateSourceStats(ctx context.Context, sourceID string, stats domain.SourceStats) error
	InsertRunLog(ctx context.Context, log domain.CollectionRunLog) error
	ListActiveSources(ctx context.Context) ([]domain.Source, error)
	// GetSource returns nil when the source does not exist.
	GetSource(ctx context.Context, id string) (*domain.Source, error)
	ListActiveIndustries(ctx context.Context) ([]domain.Industry, error)
	UpsertSource(ctx context.Context, source domain.Source) error
	UpsertIndustry(ctx context.Context, industry domain.Industry) error
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// TextClassifier maps free text onto one of the candidate industries by name.
type TextClassifier interface {
	Classify(ctx context.Context, text string, candidates []domain.Industry) (string, error)
}

// Summarizer produces a short summary for an article title.
type Summarizer interface {
	Summarize(ctx context.Context, title string) (string, error)
}

// RunLock guards against overlapping collection runs across processes.
type RunLock interface {
	// Acquire returns a release func, or ok=false when another holder owns the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// SnapshotStore archives listing markup so runs can be replayed later.
type SnapshotStore interface {
	Save(ctx context.Context, key string, markup string) error
	Load(ctx context.Context, key string) (string, error)
}

// Notifier pushes run summaries to an operator channel.
type Notifier interface {
	PublishRunSummary(ctx context.Context, summary string) error
}

// Scheduler controls when collections execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Metrics records pipeline counters.
type Metrics interface {
	SourceFinished(status domain.RunStatus, elapsed time.Duration)
	CandidatesSeen(stage string, n int)
	ArticleInserted()
	DateResolved(source domain.DateSource, strategy string)
}
