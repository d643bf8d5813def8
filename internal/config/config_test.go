package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCollector/internal/domain"
)

func TestParseKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
collector:
  concurrency: 4
  listingTimeout: 45s
scheduler:
  timezone: Europe/Berlin
sources:
  - id: mydrivers
    name: 快科技
    url: https://news.mydrivers.com/
    industryId: semiconductor
    tier: 1
    config:
      scraperType: custom
      articleContainer: "li.news"
      encoding: gbk
`))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Collector.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.Collector.ListingTimeout)
	assert.Equal(t, 10*time.Second, cfg.Collector.ArticleTimeout)
	assert.Equal(t, "glm-4-flash", cfg.LLM.Model)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.Len(t, cfg.Industries, 7)

	require.Len(t, cfg.Sources, 1)
	src := cfg.Sources[0].Domain()
	assert.True(t, src.IsActive)
	require.NotNil(t, src.IndustryID)
	assert.Equal(t, "semiconductor", *src.IndustryID)
	assert.Equal(t, domain.ScraperCustom, src.Config.Strategy())
	assert.Equal(t, "gbk", src.Config.Encoding)
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("collector: ["))
	assert.Error(t, err)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: postgres\n  dsn: postgres://file\n"), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://env")
	t.Setenv(llmAPIKeyEnv, "secret")
	t.Setenv(redisAddrEnv, "localhost:6379")
	t.Setenv(concurrencyEnv, "0")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://env", cfg.Database.DSN)
	assert.True(t, cfg.LLM.Available())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.Collector.Concurrency)
}
