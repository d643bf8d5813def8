package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCollector/internal/domain"
)

func TestCollectorCounts(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.SourceFinished(domain.RunSuccess, 2*time.Second)
	c.SourceFinished(domain.RunFailed, time.Second)
	c.SourceFinished(domain.RunSuccess, time.Second)
	c.CandidatesSeen("extracted", 12)
	c.CandidatesSeen("filtered", 0)
	c.ArticleInserted()
	c.DateResolved(domain.DateObserved, "listing")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.sources.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sources.WithLabelValues("failed")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.candidates.WithLabelValues("extracted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.inserted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dates.WithLabelValues("observed", "listing")))
}

func TestCollectorHandler(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.ArticleInserted()

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "news_collector_articles_inserted_total 1")
}
