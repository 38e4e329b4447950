package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"stock-analyst/internal/api"
	"stock-analyst/internal/marketdata/yahoo"
	"stock-analyst/internal/types"
)

const DefaultRSSURL = "https://feeds.finance.yahoo.com/rss/2.0/headline"

// rssFeed reads the Yahoo Finance headline feed
type rssFeed struct {
	baseURL  string
	region   string
	language string
	parser   *gofeed.Parser
}

func newRSSFeed(baseURL, region, language string, timeout time.Duration) *rssFeed {
	if baseURL == "" {
		baseURL = DefaultRSSURL
	}
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	p.UserAgent = api.BrowserHeaders()["User-Agent"]
	return &rssFeed{baseURL: baseURL, region: region, language: language, parser: p}
}

func (f *rssFeed) url(symbol string) string {
	q := url.Values{}
	q.Set("s", yahoo.Symbol(symbol))
	q.Set("region", f.region)
	q.Set("lang", f.language)
	sep := "?"
	if strings.Contains(f.baseURL, "?") {
		sep = "&"
	}
	return f.baseURL + sep + q.Encode()
}

func (f *rssFeed) headlines(ctx context.Context, symbol string, limit int) ([]types.NewsItem, error) {
	feed, err := f.parser.ParseURLWithContext(f.url(symbol), ctx)
	if err != nil {
		return nil, fmt.Errorf("rss feed: %w", err)
	}

	items := make([]types.NewsItem, 0, min(limit, len(feed.Items)))
	for _, it := range feed.Items {
		if len(items) >= limit {
			break
		}
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		item := types.NewsItem{Title: title, Link: it.Link, Publisher: "Yahoo Finance", Time: it.PublishedParsed}
		if len(it.Authors) > 0 && it.Authors[0] != nil && it.Authors[0].Name != "" {
			item.Publisher = it.Authors[0].Name
		}
		items = append(items, item)
	}
	return items, nil
}
