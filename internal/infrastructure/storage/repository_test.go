package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCollector/internal/domain"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	repo, err := Open(context.Background(), DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	version, dirty, err := repo.Migrate()
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), version)

	ctx := context.Background()
	require.NoError(t, repo.UpsertIndustry(ctx, domain.Industry{ID: "datacenter", Name: "数据中心", Keywords: []string{"IDC", "机房"}, IsActive: true, SortOrder: 1}))
	require.NoError(t, repo.UpsertIndustry(ctx, domain.Industry{ID: "cloud", Name: "云计算", IsActive: true, SortOrder: 2}))
	require.NoError(t, repo.UpsertIndustry(ctx, domain.Industry{ID: "legacy", Name: "旧分类", IsActive: false, SortOrder: 0}))
	return repo
}

func testArticle(hash string, at time.Time) domain.Article {
	industry := "datacenter"
	return domain.Article{
		ID:          "article-" + hash,
		SourceID:    "src-a",
		IndustryID:  &industry,
		Title:       "某数据中心完成新一轮融资",
		URL:         "https://example.com/news/" + hash,
		URLHash:     hash,
		PublishDate: at,
		DateSource:  domain.DateObserved,
		Score:       domain.Score{Relevance: 30, Timeliness: 20, Impact: 20, Credibility: 12, Total: 82},
		Priority:    domain.PriorityMedium,
		CreatedAt:   at,
	}
}

func TestRepositorySourcesAndIndustries(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()

	industry := "datacenter"
	require.NoError(t, repo.UpsertSource(ctx, domain.Source{
		ID: "src-a", Name: "A", URL: "https://a.example.com/news", IndustryID: &industry, Tier: 1, IsActive: true,
		Config: domain.SourceConfig{ScraperType: domain.ScraperCustom, ArticleContainer: "li.item", Encoding: "gbk"},
	}))
	require.NoError(t, repo.UpsertSource(ctx, domain.Source{ID: "src-b", Name: "B", URL: "https://b.example.com", Tier: 2, IsActive: false}))

	sources, err := repo.ListActiveSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "src-a", sources[0].ID)
	assert.Equal(t, "li.item", sources[0].Config.ArticleContainer)
	assert.Equal(t, "gbk", sources[0].Config.Encoding)
	require.NotNil(t, sources[0].IndustryID)
	assert.Equal(t, "datacenter", *sources[0].IndustryID)

	inactive, err := repo.GetSource(ctx, "src-b")
	require.NoError(t, err)
	require.NotNil(t, inactive)
	assert.False(t, inactive.IsActive)

	industries, err := repo.ListActiveIndustries(ctx)
	require.NoError(t, err)
	require.Len(t, industries, 2)
	assert.Equal(t, "数据中心", industries[0].Name)
	assert.Equal(t, []string{"IDC", "机房"}, industries[0].Keywords)
}

func TestRepositoryInsertArticleIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.UpsertSource(ctx, domain.Source{ID: "src-a", Name: "A", URL: "https://a.example.com", Tier: 2, IsActive: true}))

	at := time.Date(2025, time.June, 10, 8, 30, 0, 0, time.UTC)
	inserted, err := repo.InsertArticle(ctx, testArticle("hash-1", at))
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := testArticle("hash-1", at)
	dup.ID = "article-other"
	inserted, err = repo.InsertArticle(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	found, err := repo.FindArticleByURLHash(ctx, "hash-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "article-hash-1", found.ID)
	assert.True(t, at.Equal(found.PublishDate))
	assert.Equal(t, 82, found.Score.Total)
	assert.Equal(t, domain.DateObserved, found.DateSource)
	assert.Nil(t, found.Summary)

	missing, err := repo.FindArticleByURLHash(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	existing, err := repo.ExistingURLHashes(ctx, []string{"hash-1", "hash-2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"hash-1": true}, existing)
}

func TestRepositoryStatsLogsAndSettings(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.UpsertSource(ctx, domain.Source{ID: "src-a", Name: "A", URL: "https://a.example.com", Tier: 2, IsActive: true}))

	at := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateSourceStats(ctx, "src-a", domain.SourceStats{Success: false, At: at, ErrorMessage: "HTTP 500"}))
	require.NoError(t, repo.UpdateSourceStats(ctx, "src-a", domain.SourceStats{Success: true, At: at}))

	src, err := repo.GetSource(ctx, "src-a")
	require.NoError(t, err)
	assert.Equal(t, 1, src.SuccessCount)
	assert.Equal(t, 1, src.ErrorCount)
	assert.Nil(t, src.LastError)
	require.NotNil(t, src.LastCollectedAt)
	assert.True(t, at.Equal(*src.LastCollectedAt))

	require.NoError(t, repo.InsertRunLog(ctx, domain.CollectionRunLog{
		ID: "log-1", SourceID: "src-a", Status: domain.RunFailed, ErrorMessage: "HTTP 500", StartedAt: at, FinishedAt: at.Add(time.Second),
	}))
	logs, err := repo.ListRunLogs(ctx, "src-a", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.RunFailed, logs[0].Status)
	assert.Equal(t, "HTTP 500", logs[0].ErrorMessage)

	_, ok, err := repo.GetSetting(ctx, "schedule_enabled")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.SetSetting(ctx, "schedule_enabled", "false"))
	require.NoError(t, repo.SetSetting(ctx, "schedule_enabled", "true"))
	value, ok, err := repo.GetSetting(ctx, "schedule_enabled")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", value)
}

func TestParseDialect(t *testing.T) {
	t.Parallel()

	d, err := ParseDialect(" PostgreSQL ")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)

	d, err = ParseDialect("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}
