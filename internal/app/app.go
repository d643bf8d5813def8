package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsCollector/internal/classify"
	"NewsCollector/internal/config"
	"NewsCollector/internal/dates"
	"NewsCollector/internal/domain"
	"NewsCollector/internal/infrastructure/fetch"
	"NewsCollector/internal/infrastructure/httpapi"
	"NewsCollector/internal/infrastructure/llm"
	"NewsCollector/internal/infrastructure/lock"
	"NewsCollector/internal/infrastructure/metrics"
	"NewsCollector/internal/infrastructure/ml"
	"NewsCollector/internal/infrastructure/parser"
	"NewsCollector/internal/infrastructure/scheduler"
	"NewsCollector/internal/infrastructure/snapshot"
	"NewsCollector/internal/infrastructure/storage"
	"NewsCollector/internal/infrastructure/telegram"
	"NewsCollector/internal/logging"
	"NewsCollector/internal/ports"
	"NewsCollector/internal/scanner"
	"NewsCollector/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	repo       *storage.Repository
	redis      *redis.Client
	metrics    *metrics.Collector
	discoverer *parser.Discoverer
	pipeline   *usecase.Pipeline
	scheduler  *usecase.Scheduler
}

// New opens storage and builds every adapter the configuration enables.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	if err := scheduler.Validate(cfg.Scheduler.CronExpression); err != nil {
		return nil, err
	}

	dialect, err := storage.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	repo, err := storage.Open(ctx, dialect, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	a := &Application{cfg: cfg, logger: baseLogger, repo: repo, metrics: metrics.NewCollector()}

	httpClient := &http.Client{}
	fetcher := fetch.New(httpClient, cfg.Collector.UserAgent, cfg.Collector.ListingTimeout)
	rss := parser.NewRSSScanner(httpClient, cfg.Collector.UserAgent, cfg.Collector.ListingTimeout, baseLogger.With("component", "scanner.rss"))

	registry := scanner.NewRegistry()
	registry.Register(parser.NewGenericScanner(fetcher, cfg.Collector.ListingTimeout, baseLogger.With("component", "scanner.generic")))
	registry.Register(parser.NewCustomScanner(fetcher, cfg.Collector.ListingTimeout, baseLogger.With("component", "scanner.custom")))
	registry.Register(rss)

	a.discoverer = parser.NewDiscoverer(fetcher, rss)

	text, summarizer := a.inference()

	var runLock ports.RunLock
	if cfg.Redis.Addr != "" {
		a.redis = lock.NewClient(cfg.Redis)
		runLock = lock.NewRedisLock(a.redis)
	}

	snapshots, err := newSnapshotStore(ctx, cfg.Snapshots)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Storage:     repo,
		Listings:    parser.NewStrategySource(registry, baseLogger.With("component", "source")),
		Dates:       dates.NewResolver(fetcher, cfg.Collector.ArticleTimeout, baseLogger.With("component", "dates")),
		Classifier:  classify.New(text, baseLogger.With("component", "classifier")),
		Summarizer:  summarizer,
		Lock:        runLock,
		Snapshots:   snapshots,
		Metrics:     a.metrics,
		Logger:      baseLogger.With("component", "pipeline"),
		Concurrency: cfg.Collector.Concurrency,
		Limit:       cfg.Collector.Limit,
		LockTTL:     cfg.Collector.LockTTL,
		Location:    cfg.Scheduler.Location(),
	})

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	cron := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger.With("component", "cron"))
	a.scheduler = usecase.NewScheduler(cron, a.pipeline, repo, notifier, baseLogger.With("component", "scheduler"))

	return a, nil
}

// inference picks the LLM when configured, else the ML service, else keyword-only classification.
func (a *Application) inference() (ports.TextClassifier, ports.Summarizer) {
	var (
		text       ports.TextClassifier
		summarizer ports.Summarizer
	)
	switch {
	case a.cfg.LLM.Available():
		client := llm.NewClient(a.cfg.LLM)
		text, summarizer = client, client
		a.logger.Info("classifier backend selected", "backend", "llm", "model", a.cfg.LLM.Model)
	case a.cfg.ML.InferenceURL != "":
		client := ml.NewClient(a.cfg.ML.InferenceURL, a.cfg.ML.APIKey, a.cfg.ML.Timeout)
		text, summarizer = client, client
		a.logger.Info("classifier backend selected", "backend", "ml", "endpoint", a.cfg.ML.InferenceURL)
	default:
		a.logger.Info("classifier backend selected", "backend", "source-industry")
	}
	if !a.cfg.LLM.Summarize {
		summarizer = nil
	}
	return text, summarizer
}

func newSnapshotStore(ctx context.Context, cfg config.SnapshotConfig) (ports.SnapshotStore, error) {
	switch {
	case cfg.Bucket != "":
		store, err := snapshot.NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case cfg.Dir != "":
		return snapshot.NewDirStore(cfg.Dir), nil
	default:
		return nil, nil
	}
}

// Migrate applies schema migrations and, when seed is set, upserts the configured taxonomy and sources.
func (a *Application) Migrate(ctx context.Context, seed bool) (uint, error) {
	version, dirty, err := a.repo.Migrate()
	if err != nil {
		return 0, err
	}
	if dirty {
		return version, fmt.Errorf("database is dirty at migration version %d", version)
	}
	a.logger.Info("migrations applied", "version", version)

	if seed {
		if err := a.Seed(ctx); err != nil {
			return version, err
		}
	}
	return version, nil
}

// Seed upserts industries and sources declared in configuration.
func (a *Application) Seed(ctx context.Context) error {
	industries := make([]domain.Industry, 0, len(a.cfg.Industries))
	for _, ind := range a.cfg.Industries {
		industries = append(industries, domain.Industry{
			ID:        ind.ID,
			Name:      ind.Name,
			Keywords:  ind.Keywords,
			IsActive:  true,
			SortOrder: ind.SortOrder,
		})
	}
	sources := make([]domain.Source, 0, len(a.cfg.Sources))
	for _, src := range a.cfg.Sources {
		sources = append(sources, src.Domain())
	}

	if err := usecase.Seed(ctx, a.repo, industries, sources); err != nil {
		return err
	}
	a.logger.Info("seed applied", "industries", len(industries), "sources", len(sources))
	return nil
}

// Collect runs one collection immediately.
func (a *Application) Collect(ctx context.Context, opts usecase.RunOptions) (domain.RunResult, error) {
	return a.pipeline.RunCollection(ctx, opts)
}

// Backfill replays one archived listing snapshot for a source.
func (a *Application) Backfill(ctx context.Context, sourceID, snapshotKey string, now time.Time) (domain.SourceResult, error) {
	return a.pipeline.Backfill(ctx, sourceID, snapshotKey, now)
}

// Discover lists RSS/Atom feeds advertised by or probed on pageURL.
func (a *Application) Discover(ctx context.Context, pageURL string) ([]string, error) {
	return a.discoverer.Discover(ctx, pageURL)
}

// Serve runs the cron scheduler and the HTTP API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	server := httpapi.NewServer(a.pipeline, a.repo, a.metrics.Handler(), a.logger)
	serveErr := server.ListenAndServe(ctx, a.cfg.HTTP.Addr)

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stopErr := a.scheduler.Stop(stopCtx)

	return errors.Join(serveErr, stopErr)
}

// Close releases storage and the Redis client.
func (a *Application) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.repo != nil {
		errs = append(errs, a.repo.Close())
	}
	return errors.Join(errs...)
}
