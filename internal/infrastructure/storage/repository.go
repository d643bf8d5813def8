package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

// Dialect selects SQL placeholder and driver specifics.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect maps a configured driver name onto a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Repository persists sources, articles and run logs in Postgres or SQLite.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
}

var _ ports.Storage = (*Repository)(nil)

// Open connects with the driver matching dialect and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Repository, error) {
	driverName := "postgres"
	if dialect == DialectSQLite {
		driverName = "sqlite"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// one connection keeps :memory: databases alive and serializes writers
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	return NewRepository(db, dialect), nil
}

// NewRepository wraps an existing sql.DB.
func NewRepository(db *sql.DB, dialect Dialect) *Repository {
	var format sq.PlaceholderFormat = sq.Dollar
	if dialect == DialectSQLite {
		format = sq.Question
	}
	return &Repository{
		db:      db,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(format),
	}
}

// Close releases the underlying pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

var articleColumns = []string{
	"id", "source_id", "industry_id", "title", "url", "url_hash", "publish_date", "date_source",
	"summary", "score_relevance", "score_timeliness", "score_impact", "score_credibility", "score",
	"priority", "is_featured", "is_deleted", "created_at",
}

// FindArticleByURLHash returns nil when no article carries the hash.
func (r *Repository) FindArticleByURLHash(ctx context.Context, hash string) (*domain.Article, error) {
	query, args, err := r.sb.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"url_hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find article: %w", err)
	}

	var (
		a           domain.Article
		industryID  sql.NullString
		summary     sql.NullString
		publishDate dbTime
		createdAt   dbTime
		dateSource  string
		priority    string
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.SourceID, &industryID, &a.Title, &a.URL, &a.URLHash, &publishDate, &dateSource,
		&summary, &a.Score.Relevance, &a.Score.Timeliness, &a.Score.Impact, &a.Score.Credibility, &a.Score.Total,
		&priority, &a.IsFeatured, &a.IsDeleted, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find article %s: %w", hash, err)
	}

	a.IndustryID = nullableString(industryID)
	a.Summary = nullableString(summary)
	a.PublishDate = publishDate.Time
	a.CreatedAt = createdAt.Time
	a.DateSource = domain.DateSource(dateSource)
	a.Priority = domain.Priority(priority)
	return &a, nil
}

// ExistingURLHashes reports which of the hashes are already stored.
func (r *Repository) ExistingURLHashes(ctx context.Context, hashes []string) (map[string]bool, error) {
	result := make(map[string]bool, len(hashes))
	if len(hashes) == 0 {
		return result, nil
	}

	var (
		query string
		args  []any
		err   error
	)
	if r.dialect == DialectPostgres {
		query, args, err = r.sb.Select("url_hash").From("articles").
			Where("url_hash = ANY(?)", pq.StringArray(hashes)).ToSql()
	} else {
		query, args, err = r.sb.Select("url_hash").From("articles").
			Where(sq.Eq{"url_hash": hashes}).ToSql()
	}
	if err != nil {
		return nil, fmt.Errorf("build existing hashes: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing hashes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scan hash: %w", err)
		}
		result[hash] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// InsertArticle relies on the unique url_hash constraint; a conflict yields false.
func (r *Repository) InsertArticle(ctx context.Context, a domain.Article) (bool, error) {
	query, args, err := r.sb.Insert("articles").
		Columns(articleColumns...).
		Values(
			a.ID, a.SourceID, a.IndustryID, a.Title, a.URL, a.URLHash, r.timeArg(a.PublishDate), string(a.DateSource),
			a.Summary, a.Score.Relevance, a.Score.Timeliness, a.Score.Impact, a.Score.Credibility, a.Score.Total,
			string(a.Priority), a.IsFeatured, a.IsDeleted, r.timeArg(a.CreatedAt),
		).
		Suffix("ON CONFLICT (url_hash) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert article: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert article %s: %w", a.URLHash, describe(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// UpdateSourceStats bumps the success or error counter of a source.
func (r *Repository) UpdateSourceStats(ctx context.Context, sourceID string, stats domain.SourceStats) error {
	builder := r.sb.Update("sources").Where(sq.Eq{"id": sourceID})
	if stats.Success {
		builder = builder.
			Set("success_count", sq.Expr("success_count + 1")).
			Set("last_collected_at", r.timeArg(stats.At)).
			Set("last_error", nil)
	} else {
		builder = builder.
			Set("error_count", sq.Expr("error_count + 1")).
			Set("last_error", stats.ErrorMessage)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update source stats: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update source %s stats: %w", sourceID, err)
	}
	return nil
}

// InsertRunLog appends one collection log row.
func (r *Repository) InsertRunLog(ctx context.Context, l domain.CollectionRunLog) error {
	var errMsg *string
	if l.ErrorMessage != "" {
		errMsg = &l.ErrorMessage
	}

	query, args, err := r.sb.Insert("collect_logs").
		Columns("id", "source_id", "status", "articles_count", "error_message", "started_at", "finished_at").
		Values(l.ID, l.SourceID, string(l.Status), l.ArticlesCount, errMsg, r.timeArg(l.StartedAt), r.timeArg(l.FinishedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert run log: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

// ListRunLogs returns the latest logs of a source, newest first.
func (r *Repository) ListRunLogs(ctx context.Context, sourceID string, limit uint64) ([]domain.CollectionRunLog, error) {
	query, args, err := r.sb.Select("id", "source_id", "status", "articles_count", "error_message", "started_at", "finished_at").
		From("collect_logs").
		Where(sq.Eq{"source_id": sourceID}).
		OrderBy("started_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list run logs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query run logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.CollectionRunLog
	for rows.Next() {
		var (
			l        domain.CollectionRunLog
			status   string
			errMsg   sql.NullString
			started  dbTime
			finished dbTime
		)
		if err := rows.Scan(&l.ID, &l.SourceID, &status, &l.ArticlesCount, &errMsg, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run log: %w", err)
		}
		l.Status = domain.RunStatus(status)
		l.ErrorMessage = errMsg.String
		l.StartedAt = started.Time
		l.FinishedAt = finished.Time
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

var sourceColumns = []string{
	"id", "name", "url", "industry_id", "tier", "config", "is_active",
	"last_collected_at", "success_count", "error_count", "last_error",
}

// ListActiveSources returns active sources in creation order.
func (r *Repository) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	return r.listSources(ctx, sq.Eq{"is_active": true})
}

// GetSource returns a source regardless of its active flag, or nil.
func (r *Repository) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	sources, err := r.listSources(ctx, sq.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, nil
	}
	return &sources[0], nil
}

func (r *Repository) listSources(ctx context.Context, where sq.Sqlizer) ([]domain.Source, error) {
	query, args, err := r.sb.Select(sourceColumns...).
		From("sources").
		Where(where).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sources: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var (
			s           domain.Source
			industryID  sql.NullString
			rawConfig   []byte
			lastCollect nullTime
			lastError   sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &industryID, &s.Tier, &rawConfig, &s.IsActive,
			&lastCollect, &s.SuccessCount, &s.ErrorCount, &lastError); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		cfg, err := domain.DecodeSourceConfig(rawConfig)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", s.ID, err)
		}
		s.Config = cfg
		s.IndustryID = nullableString(industryID)
		s.LastError = nullableString(lastError)
		if lastCollect.Valid {
			t := lastCollect.Time
			s.LastCollectedAt = &t
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return sources, nil
}

// ListActiveIndustries returns the taxonomy ordered for prompts.
func (r *Repository) ListActiveIndustries(ctx context.Context) ([]domain.Industry, error) {
	query, args, err := r.sb.Select("id", "name", "keywords", "is_active", "sort_order").
		From("industries").
		Where(sq.Eq{"is_active": true}).
		OrderBy("sort_order", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list industries: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query industries: %w", err)
	}
	defer rows.Close()

	var industries []domain.Industry
	for rows.Next() {
		var (
			ind      domain.Industry
			keywords string
		)
		if err := rows.Scan(&ind.ID, &ind.Name, &keywords, &ind.IsActive, &ind.SortOrder); err != nil {
			return nil, fmt.Errorf("scan industry: %w", err)
		}
		if keywords != "" {
			if err := json.Unmarshal([]byte(keywords), &ind.Keywords); err != nil {
				return nil, fmt.Errorf("industry %s keywords: %w", ind.ID, err)
			}
		}
		industries = append(industries, ind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return industries, nil
}

// UpsertSource creates or edits a source definition. Counters are left untouched.
func (r *Repository) UpsertSource(ctx context.Context, s domain.Source) error {
	rawConfig, err := s.Config.Encode()
	if err != nil {
		return fmt.Errorf("encode source config: %w", err)
	}

	query, args, err := r.sb.Insert("sources").
		Columns("id", "name", "url", "industry_id", "tier", "config", "is_active", "created_at").
		Values(s.ID, s.Name, s.URL, s.IndustryID, s.Tier, string(rawConfig), s.IsActive, r.timeArg(time.Now())).
		Suffix(`ON CONFLICT (id) DO UPDATE SET name = excluded.name, url = excluded.url,
			industry_id = excluded.industry_id, tier = excluded.tier, config = excluded.config,
			is_active = excluded.is_active`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert source: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert source %s: %w", s.ID, describe(err))
	}
	return nil
}

// UpsertIndustry creates or edits a taxonomy entry.
func (r *Repository) UpsertIndustry(ctx context.Context, ind domain.Industry) error {
	keywords, err := json.Marshal(ind.Keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}

	query, args, err := r.sb.Insert("industries").
		Columns("id", "name", "keywords", "is_active", "sort_order", "created_at").
		Values(ind.ID, ind.Name, string(keywords), ind.IsActive, ind.SortOrder, r.timeArg(time.Now())).
		Suffix(`ON CONFLICT (id) DO UPDATE SET name = excluded.name, keywords = excluded.keywords,
			is_active = excluded.is_active, sort_order = excluded.sort_order`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert industry: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert industry %s: %w", ind.ID, describe(err))
	}
	return nil
}

// GetSetting reads a key from the settings table.
func (r *Repository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	query, args, err := r.sb.Select("value").From("settings").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build get setting: %w", err)
	}

	var value string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting upserts a key.
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	query, args, err := r.sb.Insert("settings").
		Columns("key", "value", "updated_at").
		Values(key, value, r.timeArg(time.Now())).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build set setting: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// sqliteTimeLayout has a fixed-width fraction so stored text sorts chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timeArg keeps native timestamps for Postgres and sortable text for SQLite.
func (r *Repository) timeArg(t time.Time) any {
	if r.dialect == DialectSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t
}

// describe adds the constraint name to Postgres errors.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Constraint != "" {
		return fmt.Errorf("%w (constraint %s, code %s)", err, pqErr.Constraint, pqErr.Code)
	}
	return err
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
