package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsCollector/internal/classify"
	"NewsCollector/internal/dates"
	"NewsCollector/internal/domain"
	"NewsCollector/internal/logging"
	"NewsCollector/internal/ports"
	"NewsCollector/internal/scanner"
	"NewsCollector/internal/scoring"
)

const (
	runLockKey     = "news-collector:collect"
	defaultLockTTL = 30 * time.Minute
	fallbackDate   = "fallback"
)

// ErrRunInProgress is returned when another process holds the collection lock.
var ErrRunInProgress = errors.New("collection run already in progress")

// ErrSourceNotFound is returned by Backfill for an unknown source.
var ErrSourceNotFound = errors.New("source not found")

// ListingSource scans one source and returns noise-filtered candidates.
type ListingSource interface {
	Collect(ctx context.Context, req scanner.Request) (scanner.Listing, error)
}

// DateResolver finds the publish date of one candidate.
type DateResolver interface {
	Resolve(ctx context.Context, req dates.Request) (dates.Resolution, bool)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Storage    ports.Storage
	Listings   ListingSource
	Dates      DateResolver
	Classifier *classify.Classifier
	Summarizer ports.Summarizer
	Lock       ports.RunLock
	Snapshots  ports.SnapshotStore
	Metrics    ports.Metrics
	Logger     *slog.Logger

	// Concurrency bounds sources processed at once; < 1 means sequential.
	Concurrency int
	// Limit is the default per-source candidate cap.
	Limit   int
	LockTTL time.Duration
	NewID   func() string
	// Location is the zone relative dates and fallback dates are computed in; nil keeps the clock's own zone.
	Location *time.Location
}

// RunOptions narrows a collection run.
type RunOptions struct {
	// SourceIDs restricts the run to these active sources; empty means all.
	SourceIDs []string
	// Limit overrides the configured per-source candidate cap when > 0.
	Limit int
	// Now anchors relative dates and the fallback publish date; zero means time.Now().
	Now time.Time
}

// Pipeline implements the article-collection workflow shared by every trigger.
type Pipeline struct {
	storage     ports.Storage
	listings    ListingSource
	dates       DateResolver
	classifier  *classify.Classifier
	summarizer  ports.Summarizer
	lock        ports.RunLock
	snapshots   ports.SnapshotStore
	metrics     ports.Metrics
	logger      *slog.Logger
	gate        *Gate
	concurrency int
	limit       int
	lockTTL     time.Duration
	newID       func() string
	loc         *time.Location
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		storage:     deps.Storage,
		listings:    deps.Listings,
		dates:       deps.Dates,
		classifier:  deps.Classifier,
		summarizer:  deps.Summarizer,
		lock:        deps.Lock,
		snapshots:   deps.Snapshots,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		concurrency: deps.Concurrency,
		limit:       deps.Limit,
		lockTTL:     deps.LockTTL,
		newID:       deps.NewID,
		loc:         deps.Location,
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	if p.lockTTL <= 0 {
		p.lockTTL = defaultLockTTL
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	if p.metrics == nil {
		p.metrics = noopMetrics{}
	}
	p.gate = NewGate(p.storage, p.newID)
	return p
}

// RunCollection processes every selected active source and always returns the
// per-source results gathered so far. It fails only for run-level problems.
func (p *Pipeline) RunCollection(ctx context.Context, opts RunOptions) (domain.RunResult, error) {
	result := domain.RunResult{StartedAt: time.Now()}
	if p.storage == nil || p.listings == nil {
		return result, fmt.Errorf("pipeline is not configured")
	}

	now := p.clock(opts.Now)

	if p.lock != nil {
		release, ok, err := p.lock.Acquire(ctx, runLockKey, p.lockTTL)
		if err != nil {
			return result, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return result, ErrRunInProgress
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				p.warn("release run lock", "error", err)
			}
		}()
	}

	sources, err := p.storage.ListActiveSources(ctx)
	if err != nil {
		return result, fmt.Errorf("list sources: %w", err)
	}
	sources = filterSources(sources, opts.SourceIDs)

	industries, err := p.storage.ListActiveIndustries(ctx)
	if err != nil {
		p.warn("list industries failed, classification uses source industry", "error", err)
		industries = nil
	}

	limit := p.limit
	if opts.Limit > 0 {
		limit = opts.Limit
	}

	p.info("collection started", "sources", len(sources), "concurrency", p.concurrency, "now", now.Format(time.RFC3339))

	results := p.runWorkers(ctx, sources, func(src domain.Source) domain.SourceResult {
		return p.processSource(ctx, src, industries, scanner.Request{Source: src, Now: now, Limit: limit})
	})

	for _, r := range results {
		result.PerSource = append(result.PerSource, r)
		result.SourcesAttempted++
		if r.Status == domain.RunSuccess {
			result.SourcesSucceeded++
			result.ArticlesInserted += r.Count
		}
	}
	result.FinishedAt = time.Now()

	p.info("collection finished",
		"attempted", result.SourcesAttempted,
		"succeeded", result.SourcesSucceeded,
		"inserted", result.ArticlesInserted,
		"elapsed", result.FinishedAt.Sub(result.StartedAt).String())
	return result, nil
}

// Backfill replays an archived listing of one source with an explicit clock.
func (p *Pipeline) Backfill(ctx context.Context, sourceID, snapshotKey string, now time.Time) (domain.SourceResult, error) {
	if p.snapshots == nil {
		return domain.SourceResult{}, fmt.Errorf("snapshot store is not configured")
	}
	src, err := p.storage.GetSource(ctx, sourceID)
	if err != nil {
		return domain.SourceResult{}, fmt.Errorf("load source: %w", err)
	}
	if src == nil {
		return domain.SourceResult{}, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceID)
	}

	markup, err := p.snapshots.Load(ctx, snapshotKey)
	if err != nil {
		return domain.SourceResult{}, fmt.Errorf("load snapshot %s: %w", snapshotKey, err)
	}

	industries, err := p.storage.ListActiveIndustries(ctx)
	if err != nil {
		p.warn("list industries failed, classification uses source industry", "error", err)
	}

	now = p.clock(now)
	return p.processSource(ctx, *src, industries, scanner.Request{
		Source: *src,
		Now:    now,
		Limit:  p.limit,
		Markup: markup,
	}), nil
}

// clock returns the run time in the configured zone.
func (p *Pipeline) clock(now time.Time) time.Time {
	if now.IsZero() {
		now = time.Now()
	}
	if p.loc != nil {
		now = now.In(p.loc)
	}
	return now
}

// runWorkers fans sources out to a bounded pool and keeps results in source
// order. Sources not yet dispatched when ctx is done are skipped.
func (p *Pipeline) runWorkers(ctx context.Context, sources []domain.Source, fn func(domain.Source) domain.SourceResult) []domain.SourceResult {
	slots := make([]*domain.SourceResult, len(sources))
	jobs := make(chan int)

	workers := p.concurrency
	if workers > len(sources) {
		workers = len(sources)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				r := fn(sources[i])
				slots[i] = &r
			}
		}()
	}

dispatch:
	for i := range sources {
		select {
		case <-ctx.Done():
			p.warn("collection cancelled, remaining sources skipped", "skipped", len(sources)-i)
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	out := make([]domain.SourceResult, 0, len(sources))
	for _, r := range slots {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (p *Pipeline) processSource(ctx context.Context, src domain.Source, industries []domain.Industry, req scanner.Request) domain.SourceResult {
	started := time.Now()
	logger := p.sourceLogger(src)

	listing, err := p.listings.Collect(ctx, req)
	if err != nil {
		return p.finishFailed(ctx, src, started, err.Error())
	}
	p.metrics.CandidatesSeen("extracted", listing.Extracted)
	p.metrics.CandidatesSeen("filtered", len(listing.Candidates))

	if p.snapshots != nil && req.Markup == "" && listing.Markup != "" {
		key := SnapshotKey(src.ID, req.Now)
		if err := p.snapshots.Save(ctx, key, listing.Markup); err != nil {
			logger.Warn("snapshot save failed", "key", key, "error", err)
		}
	}

	known := p.knownHashes(ctx, listing.Candidates, logger)

	var (
		inserted  int
		attempted int
		failed    int
		lastErr   error
	)
	for _, c := range listing.Candidates {
		if err := ctx.Err(); err != nil {
			return p.finishFailed(ctx, src, started, err.Error())
		}
		if known[URLHash(c.URL)] {
			continue
		}

		enrichment := p.enrich(ctx, c, src, industries, req.Now)

		attempted++
		ok, err := p.gate.Persist(ctx, c, src, enrichment)
		if err != nil {
			failed++
			lastErr = err
			logger.Warn("persist article failed", "url", c.URL, "error", err)
			continue
		}
		if ok {
			inserted++
			p.metrics.ArticleInserted()
		}
	}

	if attempted > 0 && failed == attempted {
		return p.finishFailed(ctx, src, started,
			fmt.Sprintf("storage: %d of %d inserts failed: %v", failed, attempted, lastErr))
	}

	finished := time.Now()
	if err := p.storage.UpdateSourceStats(ctx, src.ID, domain.SourceStats{Success: true, At: finished}); err != nil {
		logger.Warn("update source stats failed", "error", err)
	}
	p.writeRunLog(ctx, domain.CollectionRunLog{
		ID:            p.newID(),
		SourceID:      src.ID,
		Status:        domain.RunSuccess,
		ArticlesCount: inserted,
		StartedAt:     started,
		FinishedAt:    finished,
	}, logger)
	p.metrics.SourceFinished(domain.RunSuccess, finished.Sub(started))

	logger.Info("source collected", "candidates", len(listing.Candidates), "inserted", inserted, "strategy", listing.Strategy)
	return domain.SourceResult{SourceID: src.ID, SourceName: src.Name, Status: domain.RunSuccess, Count: inserted}
}

// enrich runs date resolution, summary, scoring and classification in order.
func (p *Pipeline) enrich(ctx context.Context, c domain.Candidate, src domain.Source, industries []domain.Industry, now time.Time) Enrichment {
	e := Enrichment{PublishDate: now, DateSource: domain.DateFallback, CreatedAt: time.Now()}

	switch {
	case c.PublishedAt != nil && dates.Valid(*c.PublishedAt, now):
		e.PublishDate = *c.PublishedAt
		e.DateSource = c.DateSource
		if e.DateSource == "" {
			e.DateSource = domain.DateObserved
		}
		p.metrics.DateResolved(e.DateSource, "listing")
	default:
		strategy := fallbackDate
		if p.dates != nil {
			if res, ok := p.dates.Resolve(ctx, dates.Request{
				URL:      c.URL,
				Context:  c.DateHint,
				Selector: src.Config.DateSelector,
				Encoding: src.Config.Encoding,
				Now:      now,
			}); ok {
				e.PublishDate = res.Time
				e.DateSource = res.Source
				strategy = res.Strategy
			}
		}
		p.metrics.DateResolved(e.DateSource, strategy)
	}

	if p.summarizer != nil {
		summary, err := p.summarizer.Summarize(ctx, c.Title)
		if err != nil {
			p.debug("summarizer failed", "url", c.URL, "error", err)
		} else if s := strings.TrimSpace(summary); s != "" {
			e.Summary = &s
		}
	}

	e.Score = scoring.Score(c.Title, src.Tier)
	e.IndustryID = p.classifier.Classify(ctx, c.Title, e.Summary, industries, src.IndustryID)
	return e
}

// knownHashes skips enrichment work for URLs already stored. The gate still
// enforces uniqueness, so a lookup failure only costs extra work.
func (p *Pipeline) knownHashes(ctx context.Context, candidates []domain.Candidate, logger *slog.Logger) map[string]bool {
	if len(candidates) == 0 {
		return nil
	}
	hashes := make([]string, len(candidates))
	for i, c := range candidates {
		hashes[i] = URLHash(c.URL)
	}
	known, err := p.storage.ExistingURLHashes(ctx, hashes)
	if err != nil {
		logger.Warn("batch duplicate check failed", "error", err)
		return nil
	}
	return known
}

func (p *Pipeline) finishFailed(ctx context.Context, src domain.Source, started time.Time, message string) domain.SourceResult {
	logger := p.sourceLogger(src)
	finished := time.Now()

	// bookkeeping must survive a cancelled run
	bg := context.WithoutCancel(ctx)
	if err := p.storage.UpdateSourceStats(bg, src.ID, domain.SourceStats{Success: false, At: finished, ErrorMessage: message}); err != nil {
		logger.Warn("update source stats failed", "error", err)
	}
	p.writeRunLog(bg, domain.CollectionRunLog{
		ID:           p.newID(),
		SourceID:     src.ID,
		Status:       domain.RunFailed,
		ErrorMessage: message,
		StartedAt:    started,
		FinishedAt:   finished,
	}, logger)
	p.metrics.SourceFinished(domain.RunFailed, finished.Sub(started))

	logger.Warn("source failed", "error", message)
	return domain.SourceResult{SourceID: src.ID, SourceName: src.Name, Status: domain.RunFailed, Error: message}
}

func (p *Pipeline) writeRunLog(ctx context.Context, l domain.CollectionRunLog, logger *slog.Logger) {
	if err := p.storage.InsertRunLog(ctx, l); err != nil {
		logger.Warn("insert run log failed", "error", err)
	}
}

// SnapshotKey names the archived listing of a source for one run.
func SnapshotKey(sourceID string, at time.Time) string {
	return fmt.Sprintf("%s/%s.html", sourceID, at.UTC().Format("20060102T150405Z"))
}

func filterSources(sources []domain.Source, ids []string) []domain.Source {
	if len(ids) == 0 {
		return sources
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := sources[:0:0]
	for _, s := range sources {
		if wanted[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

func (p *Pipeline) sourceLogger(src domain.Source) *slog.Logger {
	if p.logger == nil {
		return logging.Discard()
	}
	return p.logger.With("source", src.ID)
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

type noopMetrics struct{}

func (noopMetrics) SourceFinished(domain.RunStatus, time.Duration) {}
func (noopMetrics) CandidatesSeen(string, int)                     {}
func (noopMetrics) ArticleInserted()                               {}
func (noopMetrics) DateResolved(domain.DateSource, string)         {}
