// Package news gathers recent headlines for a ticker. The Yahoo Finance RSS feed
// is tried first; when it yields nothing, the Google News search page is scraped.
package news

import (
	"context"
	"errors"
	"strings"
	"time"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/store"
	"stock-analyst/internal/types"
)

// Service serves cached headlines per symbol
type Service struct {
	feed     *rssFeed
	scraper  *Scraper
	fallback bool
	cache    *headlineCache
}

var _ interfaces.NewsProvider = (*Service)(nil)

// ServiceConfig configures the headline service
type ServiceConfig struct {
	RSSURL        string
	GoogleNewsURL string
	Fallback      bool
	Region        string
	Language      string
	CacheDuration time.Duration
	Timeout       time.Duration
}

func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		RSSURL:        DefaultRSSURL,
		GoogleNewsURL: DefaultGoogleNewsURL,
		Fallback:      true,
		Region:        "US",
		Language:      "en-US",
		CacheDuration: 30 * time.Minute,
		Timeout:       20 * time.Second,
	}
}

// ConfigFrom maps the news section of the application config
func ConfigFrom(cfg store.NewsConfig) *ServiceConfig {
	sc := DefaultServiceConfig()
	if cfg.RSSURL != "" {
		sc.RSSURL = cfg.RSSURL
	}
	sc.Fallback = cfg.GoogleNewsFallback
	if cfg.Region != "" {
		sc.Region = cfg.Region
	}
	if cfg.Language != "" {
		sc.Language = cfg.Language
	}
	if cfg.CacheMinutes > 0 {
		sc.CacheDuration = time.Duration(cfg.CacheMinutes) * time.Minute
	}
	if cfg.ScraperTimeoutSeconds > 0 {
		sc.Timeout = time.Duration(cfg.ScraperTimeoutSeconds) * time.Second
	}
	return sc
}

func NewService(cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	return &Service{
		feed:     newRSSFeed(cfg.RSSURL, cfg.Region, cfg.Language, cfg.Timeout),
		scraper:  NewScraper(cfg.GoogleNewsURL, cfg.Region, cfg.Language, cfg.Timeout),
		fallback: cfg.Fallback,
		cache:    newHeadlineCache(cfg.CacheDuration),
	}
}

// Headlines returns up to limit recent headlines for symbol. company, when set,
// is the Google News query; otherwise the symbol is searched.
func (s *Service) Headlines(ctx context.Context, symbol, company string, limit int) ([]types.NewsItem, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if limit <= 0 {
		limit = 5
	}

	if cached, age, ok := s.cache.get(key, limit); ok {
		logger.Debug(ctx, "Using cached headlines", "symbol", key, "age_minutes", age.Minutes())
		return truncate(cached, limit), nil
	}

	items, rssErr := s.feed.headlines(ctx, key, limit)
	if rssErr != nil {
		logger.Warn(ctx, "RSS headlines failed", "symbol", key, "error", rssErr)
	}

	if len(items) == 0 && s.fallback {
		query := company
		if query == "" {
			query = key
		}
		logger.Info(ctx, "No RSS headlines, trying Google News", "symbol", key, "query", query)
		scraped, err := s.scraper.Search(ctx, query, limit)
		if err != nil {
			logger.ErrorWithErr(ctx, "Google News fallback failed", err, "symbol", key)
			return nil, errors.Join(rssErr, err)
		}
		items = scraped
	} else if rssErr != nil {
		return nil, rssErr
	}

	if len(items) > 0 {
		s.cache.set(key, items, limit)
	}
	return truncate(items, limit), nil
}

// Refresh bypasses the cache
func (s *Service) Refresh(ctx context.Context, symbol, company string, limit int) ([]types.NewsItem, error) {
	s.cache.clearSymbol(strings.ToUpper(strings.TrimSpace(symbol)))
	return s.Headlines(ctx, symbol, company, limit)
}

func (s *Service) ClearCache() {
	s.cache.clear()
}

func (s *Service) CachedSymbols() []string {
	return s.cache.symbols()
}

// Close stops the cache cleanup loop
func (s *Service) Close() {
	s.cache.close()
}

func truncate(items []types.NewsItem, limit int) []types.NewsItem {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
