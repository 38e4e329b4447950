package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"stock-analyst/internal/api"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

const DefaultGoogleNewsURL = "https://news.google.com"

// Scraper pulls headlines from the Google News search page
type Scraper struct {
	baseURL  string
	region   string
	language string
	timeout  time.Duration
}

func NewScraper(baseURL, region, language string, timeout time.Duration) *Scraper {
	if baseURL == "" {
		baseURL = DefaultGoogleNewsURL
	}
	return &Scraper{
		baseURL:  strings.TrimRight(baseURL, "/"),
		region:   region,
		language: language,
		timeout:  timeout,
	}
}

// searchURL builds the search page URL, e.g. /search?q=Apple+Inc+stock&hl=en-US&gl=US&ceid=US:en
func (s *Scraper) searchURL(query string) string {
	lang := s.language
	if lang == "" {
		lang = "en-US"
	}
	region := s.region
	if region == "" {
		region = "US"
	}
	short, _, _ := strings.Cut(lang, "-")

	q := url.Values{}
	q.Set("q", query+" stock")
	q.Set("hl", lang)
	q.Set("gl", region)
	q.Set("ceid", region+":"+short)
	return s.baseURL + "/search?" + q.Encode()
}

// Search returns at most limit headlines for query
func (s *Scraper) Search(ctx context.Context, query string, limit int) ([]types.NewsItem, error) {
	items := []types.NewsItem{}
	seen := map[string]bool{}

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(s.baseURL)),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
		colly.UserAgent(api.BrowserHeaders()["User-Agent"]),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnHTML("article", func(e *colly.HTMLElement) {
		if len(items) >= limit {
			return
		}
		item, ok := parseArticle(e.DOM, s.baseURL)
		if !ok || seen[item.Title] {
			return
		}
		seen[item.Title] = true
		items = append(items, item)
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("google news %d: %w", r.StatusCode, err)
	})

	target := s.searchURL(query)
	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", target, err)
	}
	c.Wait()
	if visitErr != nil {
		return nil, visitErr
	}

	logger.Debug(ctx, "Google News scraping completed", "query", query, "articles", len(items))
	return items, nil
}

// parseArticle reads one search result card
func parseArticle(sel *goquery.Selection, base string) (types.NewsItem, bool) {
	title := strings.TrimSpace(sel.Find("h3, h4").First().Text())
	link, _ := sel.Find("a[href]").First().Attr("href")
	if title == "" {
		// newer layouts put the headline in the anchor itself
		title = strings.TrimSpace(sel.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
			return strings.TrimSpace(a.Text()) != ""
		}).First().Text())
	}
	if title == "" || link == "" {
		return types.NewsItem{}, false
	}
	if strings.HasPrefix(link, "./") {
		link = base + link[1:]
	}

	item := types.NewsItem{Title: title, Link: link, Publisher: "Google News"}
	if src := strings.TrimSpace(sel.Find("[data-n-tid], .vr1PYe").First().Text()); src != "" {
		item.Publisher = src
	}
	if dt, ok := sel.Find("time[datetime]").First().Attr("datetime"); ok {
		if t, err := time.Parse(time.RFC3339, dt); err == nil {
			item.Time = &t
		}
	}
	return item, true
}

func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
