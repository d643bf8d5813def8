package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
	"NewsCollector/internal/scanner"
)

var testNow = time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)

type pageFetcher struct {
	pages map[string]string
	calls []string
}

func (f *pageFetcher) Fetch(_ context.Context, u string, _ ports.FetchOptions) (string, error) {
	f.calls = append(f.calls, u)
	page, ok := f.pages[u]
	if !ok {
		return "", errors.New("HTTP 404")
	}
	return page, nil
}

const listingPage = `<html><body>
<ul class="news">
  <li class="item"><a href="/news/2025/06/09/a.html">国家发布算力基础设施高质量发展行动计划</a><span>06-09</span></li>
  <li class="item"><a href="/news/b.html">某数据中心完成新一轮融资扩建液冷机房</a><span>2小时前</span></li>
</ul>
<div class="footer">
  <a href="/about/contact.html">联系我们联系我们联系我们</a>
  <a href="https://other.example.org/x.html">外部站点的一篇很长的新闻标题</a>
</div>
</body></html>`

func TestListingScannerGeneric(t *testing.T) {
	t.Parallel()

	fetcher := &pageFetcher{pages: map[string]string{"https://news.example.com/list": listingPage}}
	sc := NewGenericScanner(fetcher, time.Second, nil)

	res, err := sc.Scan(context.Background(), scanner.Request{
		Source: domain.Source{ID: "s", URL: "https://news.example.com/list"},
		Now:    testNow,
	})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 4)
	assert.Equal(t, "https://news.example.com/news/2025/06/09/a.html", res.Candidates[0].URL)
	assert.Equal(t, listingPage, res.Markup)
}

func TestListingScannerCustomFallsBackWhenContainersMiss(t *testing.T) {
	t.Parallel()

	fetcher := &pageFetcher{}
	sc := NewCustomScanner(fetcher, time.Second, nil)
	src := domain.Source{
		ID:     "s",
		URL:    "https://news.example.com/list",
		Config: domain.SourceConfig{ScraperType: domain.ScraperCustom, ArticleContainer: "li.item"},
	}

	res, err := sc.Scan(context.Background(), scanner.Request{Source: src, Now: testNow, Markup: listingPage, Limit: 1})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "国家发布算力基础设施高质量发展行动计划", res.Candidates[0].Title)
	assert.Contains(t, res.Candidates[0].DateHint, "06-09")
	assert.Empty(t, fetcher.calls)

	src.Config.ArticleContainer = "div.missing"
	res, err = sc.Scan(context.Background(), scanner.Request{Source: src, Now: testNow, Markup: listingPage})
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 4)
}

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Example</title>
<item><title>数据中心液冷方案迎来规模化部署</title><link>https://news.example.com/a.html#top</link>
<pubDate>Mon, 09 Jun 2025 10:00:00 +0000</pubDate><description>&lt;p&gt;摘要文字&lt;/p&gt;</description></item>
<item><title>未来日期的条目也应当保留但不带日期</title><link>https://news.example.com/b.html</link>
<pubDate>Mon, 01 Jun 2026 10:00:00 +0000</pubDate></item>
<item><title>重复链接的条目应当只保留第一次出现</title><link>https://news.example.com/a.html</link></item>
</channel></rss>`

func TestRSSScannerScan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer server.Close()

	sc := NewRSSScanner(server.Client(), "", time.Second, nil)
	res, err := sc.Scan(context.Background(), scanner.Request{
		Source: domain.Source{ID: "s", URL: "https://news.example.com/", Config: domain.SourceConfig{RSSURL: server.URL + "/feed"}},
		Now:    testNow,
	})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)

	first := res.Candidates[0]
	assert.Equal(t, "https://news.example.com/a.html", first.URL)
	require.NotNil(t, first.PublishedAt)
	assert.True(t, first.PublishedAt.Equal(time.Date(2025, time.June, 9, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, domain.DateObserved, first.DateSource)
	assert.Equal(t, "摘要文字", first.DateHint)

	assert.Nil(t, res.Candidates[1].PublishedAt)
	assert.Equal(t, feedXML, res.Markup)
}

func TestRSSScannerStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewRSSScanner(server.Client(), "", time.Second, nil).Scan(context.Background(), scanner.Request{
		Source: domain.Source{ID: "s", URL: server.URL, Config: domain.SourceConfig{RSSURL: server.URL + "/feed"}},
	})
	require.Error(t, err)
	assert.Equal(t, "HTTP 502", err.Error())
}

func TestStrategySourceFiltersNoiseAndFallsBack(t *testing.T) {
	t.Parallel()

	fetcher := &pageFetcher{pages: map[string]string{"https://news.example.com/list": listingPage}}
	failingFeed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer failingFeed.Close()

	reg := scanner.NewRegistry()
	reg.Register(NewGenericScanner(fetcher, time.Second, nil))
	reg.Register(NewCustomScanner(fetcher, time.Second, nil))
	reg.Register(NewRSSScanner(failingFeed.Client(), "", time.Second, nil))

	src := domain.Source{
		ID:     "s",
		URL:    "https://news.example.com/list",
		Config: domain.SourceConfig{RSSURL: failingFeed.URL + "/rss"},
	}
	listing, err := NewStrategySource(reg, nil).Collect(context.Background(), scanner.Request{Source: src, Now: testNow})
	require.NoError(t, err)

	assert.Equal(t, string(domain.ScraperGeneric), listing.Strategy)
	assert.Equal(t, 4, listing.Extracted)
	require.Len(t, listing.Candidates, 2)
	assert.Equal(t, "某数据中心完成新一轮融资扩建液冷机房", listing.Candidates[1].Title)
}

func TestStrategySourceLimitCountsKeptCandidates(t *testing.T) {
	t.Parallel()

	page := `<html><body>
<div class="partners"><a href="https://partner.example.org/promo.html">合作伙伴推荐的一篇很长的宣传文章</a></div>
<div class="nav"><a href="/about/index.html">关于我们的公司介绍和发展历程</a></div>
<div class="legal"><a href="/privacy/policy.html">隐私政策与用户协议的完整说明</a></div>
<ul>
  <li><a href="/news/1.html">国家发布算力基础设施高质量发展行动计划</a></li>
  <li><a href="/news/2.html">某数据中心完成新一轮融资扩建液冷机房</a></li>
  <li><a href="/news/3.html">云服务商宣布在华东新建可用区并降价</a></li>
</ul>
</body></html>`

	reg := scanner.NewRegistry()
	reg.Register(NewGenericScanner(&pageFetcher{}, time.Second, nil))

	src := domain.Source{ID: "s", URL: "https://news.example.com/list"}
	listing, err := NewStrategySource(reg, nil).Collect(context.Background(), scanner.Request{
		Source: src,
		Now:    testNow,
		Limit:  2,
		Markup: page,
	})
	require.NoError(t, err)

	assert.Equal(t, 6, listing.Extracted)
	require.Len(t, listing.Candidates, 2)
	assert.Equal(t, "https://news.example.com/news/1.html", listing.Candidates[0].URL)
	assert.Equal(t, "https://news.example.com/news/2.html", listing.Candidates[1].URL)
}

func TestAlternateFeeds(t *testing.T) {
	t.Parallel()

	base, _ := url.Parse("https://news.example.com/list")
	feeds, err := AlternateFeeds(`<html><head>
<link rel="alternate" type="application/rss+xml" href="/rss.xml">
<link rel="alternate" type="text/html" href="/m">
<link rel="alternate" type="application/atom+xml" href="https://news.example.com/atom">
</head></html>`, base)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://news.example.com/rss.xml", "https://news.example.com/atom"}, feeds)
}

func TestDiscoverProbesCommonPaths(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed.xml" {
			_, _ = w.Write([]byte(feedXML))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	pages := &pageFetcher{pages: map[string]string{server.URL + "/": "<html><head></head></html>"}}
	d := NewDiscoverer(pages, NewRSSScanner(server.Client(), "", time.Second, nil))

	feeds, err := d.Discover(context.Background(), server.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, []string{server.URL + "/feed.xml"}, feeds)
}
