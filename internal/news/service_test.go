package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/store"
	"stock-analyst/internal/types"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Yahoo! Finance: AAPL News</title>
<item><title>Apple beats earnings expectations</title><link>https://example.com/1</link><pubDate>Tue, 02 Jan 2024 15:04:05 +0000</pubDate></item>
<item><title>  </title><link>https://example.com/blank</link></item>
<item><title>Apple faces lawsuit over patents</title><link>https://example.com/2</link></item>
<item><title>Apple unveils new product</title><link>https://example.com/3</link></item>
</channel></rss>`

const emptyRSS = `<?xml version="1.0"?><rss version="2.0"><channel><title>empty</title></channel></rss>`

const googleBody = `<html><body>
<article><h3>Infosys shares rally on strong guidance</h3><a href="./articles/abc">read</a>
<div class="vr1PYe">Reuters</div><time datetime="2024-01-03T10:00:00Z"></time></article>
<article><a href="./articles/def">Infosys wins large deal</a></article>
<article><h3>Infosys shares rally on strong guidance</h3><a href="./articles/dup">dup</a></article>
</body></html>`

type fixture struct {
	srv        *httptest.Server
	rssHits    int32
	googleHits int32
	gotQuery   string
	gotSymbol  string
	rss        string
}

func newFixture(t *testing.T, rss string) *fixture {
	f := &fixture{rss: rss}
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.rssHits, 1)
		f.gotSymbol = r.URL.Query().Get("s")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(f.rss))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.googleHits, 1)
		f.gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(googleBody))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) service(t *testing.T, fallback bool) *Service {
	svc := NewService(&ServiceConfig{
		RSSURL:        f.srv.URL + "/rss",
		GoogleNewsURL: f.srv.URL,
		Fallback:      fallback,
		Region:        "US",
		Language:      "en-US",
		CacheDuration: time.Minute,
		Timeout:       5 * time.Second,
	})
	t.Cleanup(svc.Close)
	return svc
}

func titles(items []types.NewsItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestHeadlinesFromRSS(t *testing.T) {
	f := newFixture(t, rssBody)
	svc := f.service(t, true)

	items, err := svc.Headlines(context.Background(), "aapl", "Apple Inc.", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"Apple beats earnings expectations", "Apple faces lawsuit over patents"}, titles(items))
	assert.Equal(t, "AAPL", f.gotSymbol)
	assert.Equal(t, "Yahoo Finance", items[0].Publisher)
	require.NotNil(t, items[0].Time)
	assert.Equal(t, 2024, items[0].Time.Year())
	assert.Zero(t, atomic.LoadInt32(&f.googleHits))
}

func TestHeadlinesCached(t *testing.T) {
	f := newFixture(t, rssBody)
	svc := f.service(t, false)

	_, err := svc.Headlines(context.Background(), "AAPL", "", 3)
	require.NoError(t, err)
	items, err := svc.Headlines(context.Background(), "AAPL", "", 3)
	require.NoError(t, err)

	assert.Len(t, items, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.rssHits))
	assert.Equal(t, []string{"AAPL"}, svc.CachedSymbols())

	_, err = svc.Refresh(context.Background(), "AAPL", "", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.rssHits))

	svc.ClearCache()
	assert.Empty(t, svc.CachedSymbols())
}

func TestHeadlinesLargerLimitRefetches(t *testing.T) {
	f := newFixture(t, rssBody)
	svc := f.service(t, false)
	ctx := context.Background()

	items, err := svc.Headlines(ctx, "AAPL", "", 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = svc.Headlines(ctx, "AAPL", "", 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.rssHits))

	items, err = svc.Headlines(ctx, "AAPL", "", 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.rssHits), "smaller limit served from cache")

	_, err = svc.Headlines(ctx, "AAPL", "", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.rssHits))

	items, err = svc.Headlines(ctx, "AAPL", "", 10)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.rssHits), "feed already exhausted")
}

func TestHeadlineCacheCoversLimit(t *testing.T) {
	c := newHeadlineCache(time.Minute)
	defer c.close()

	c.set("AAPL", []types.NewsItem{{Title: "a"}, {Title: "b"}}, 2)
	_, _, ok := c.get("AAPL", 2)
	assert.True(t, ok)
	_, _, ok = c.get("AAPL", 4)
	assert.False(t, ok)

	c.set("MSFT", []types.NewsItem{{Title: "a"}}, 5)
	_, _, ok = c.get("MSFT", 20)
	assert.True(t, ok)
}

func TestHeadlinesFallBackToGoogleNews(t *testing.T) {
	f := newFixture(t, emptyRSS)
	svc := f.service(t, true)

	items, err := svc.Headlines(context.Background(), "NSE:INFY", "Infosys", 5)
	require.NoError(t, err)

	assert.Equal(t, "INFY.NS", f.gotSymbol)
	assert.Equal(t, "Infosys stock", f.gotQuery)
	require.Len(t, items, 2)
	assert.Equal(t, "Infosys shares rally on strong guidance", items[0].Title)
	assert.Equal(t, "Reuters", items[0].Publisher)
	assert.Equal(t, f.srv.URL+"/articles/abc", items[0].Link)
	require.NotNil(t, items[0].Time)
	assert.Equal(t, "Infosys wins large deal", items[1].Title)
	assert.Equal(t, "Google News", items[1].Publisher)
}

func TestHeadlinesWithoutFallbackReturnsEmpty(t *testing.T) {
	f := newFixture(t, emptyRSS)
	svc := f.service(t, false)

	items, err := svc.Headlines(context.Background(), "ZZZ", "", 5)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, svc.CachedSymbols(), "empty results are not cached")
}

func TestHeadlinesRSSError(t *testing.T) {
	f := newFixture(t, "not a feed")
	svc := f.service(t, false)

	_, err := svc.Headlines(context.Background(), "AAPL", "", 5)
	assert.Error(t, err)
}

func TestHeadlineCacheExpiry(t *testing.T) {
	c := newHeadlineCache(50 * time.Millisecond)
	defer c.close()

	c.set("RELIANCE", []types.NewsItem{{Title: "x"}}, 5)
	got, _, ok := c.get("RELIANCE", 5)
	require.True(t, ok)
	assert.Len(t, got, 1)

	time.Sleep(100 * time.Millisecond)
	_, _, ok = c.get("RELIANCE", 5)
	assert.False(t, ok)

	c.cleanup()
	assert.Empty(t, c.symbols())
}

func TestConfigFrom(t *testing.T) {
	sc := ConfigFrom(store.NewsConfig{RSSURL: "http://feed", GoogleNewsFallback: true, CacheMinutes: 5, ScraperTimeoutSeconds: 3})

	assert.Equal(t, "http://feed", sc.RSSURL)
	assert.True(t, sc.Fallback)
	assert.Equal(t, 5*time.Minute, sc.CacheDuration)
	assert.Equal(t, 3*time.Second, sc.Timeout)
	assert.Equal(t, "US", sc.Region)
	assert.Equal(t, DefaultGoogleNewsURL, sc.GoogleNewsURL)
}
