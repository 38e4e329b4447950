package marketdata

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/marketdata/eodhd"
	"stock-analyst/internal/marketdata/mdobs"
	"stock-analyst/internal/marketdata/yahoo"
	"stock-analyst/internal/marketdata/zerodha"
	"stock-analyst/internal/news"
	"stock-analyst/internal/store"
)

// Built is the configured market-data layer. Close releases background workers.
type Built struct {
	Source interfaces.MarketData
	News   *news.Service
}

func (b *Built) Close() {
	if b.News != nil {
		b.News.Close()
	}
}

// FromConfig wires the providers named in cfg into an observable Source.
// A provider whose credentials are missing is skipped with a warning.
func FromConfig(ctx context.Context, cfg *store.Config) (*Built, error) {
	md := cfg.MarketData
	timeout := time.Duration(md.TimeoutSeconds) * time.Second
	lookback := ParseRange(md.HistoryRange)

	var eod *eodhd.Client
	if md.Fundamentals == "EODHD" || md.History == "EODHD" || md.News == "EODHD" {
		if key := os.Getenv(md.EODHD.APIKeyEnv); key != "" {
			eod = eodhd.New(key,
				eodhd.WithBaseURL(md.EODHD.BaseURL),
				eodhd.WithRateLimit(md.EODHD.RateLimit),
				eodhd.WithTimeout(timeout),
				eodhd.WithHistoryRange(lookback),
			)
		} else {
			logger.Warn(ctx, "EODHD API key not set; EODHD providers disabled", "env", md.EODHD.APIKeyEnv)
		}
	}

	built := &Built{}
	opts := []Option{}

	if md.Fundamentals == "EODHD" && eod != nil {
		opts = append(opts, WithFundamentals(mdobs.WrapFundamentals("eodhd", eod)))
	}

	switch md.History {
	case "YAHOO":
		yc := yahoo.New(yahoo.WithChartURL(md.Yahoo.ChartURL), yahoo.WithRange(md.HistoryRange), yahoo.WithTimeout(timeout))
		opts = append(opts, WithHistory(mdobs.WrapHistory("yahoo", yc)))
	case "EODHD":
		if eod != nil {
			opts = append(opts, WithHistory(mdobs.WrapHistory("eodhd", eod)))
		}
	}

	if md.Zerodha.Enabled {
		kp, err := zerodha.New(os.Getenv(md.Zerodha.APIKeyEnv), os.Getenv(md.Zerodha.AccessTokenEnv),
			zerodha.WithExchange(md.Zerodha.Exchange),
			zerodha.WithLookback(lookback),
		)
		if err != nil {
			logger.Warn(ctx, "Kite Connect history disabled", "error", err)
		} else {
			opts = append(opts, WithNSEHistory(mdobs.WrapHistory("zerodha", kp)))
		}
	}

	switch md.News {
	case "RSS":
		built.News = news.NewService(news.ConfigFrom(cfg.News))
		opts = append(opts, WithNews(mdobs.WrapNews("rss", built.News), md.NewsLimit))
	case "EODHD":
		if eod != nil {
			opts = append(opts, WithNews(mdobs.WrapNews("eodhd", eod), md.NewsLimit))
		}
	}

	if md.CacheTTLMinutes > 0 {
		cache, err := NewCache(md.CacheDir, time.Duration(md.CacheTTLMinutes)*time.Minute)
		if err != nil {
			built.Close()
			return nil, fmt.Errorf("market data cache: %w", err)
		}
		if n, err := cache.CleanupExpired(); err == nil && n > 0 {
			logger.Debug(ctx, "Removed expired market data cache entries", "count", n)
		}
		opts = append(opts, WithCache(cache))
	}

	logger.Info(ctx, "Market data configured",
		"fundamentals", md.Fundamentals,
		"history", md.History,
		"news", md.News,
		"nse_history", md.Zerodha.Enabled,
		"cache_ttl_minutes", md.CacheTTLMinutes,
	)

	built.Source = mdobs.Wrap(NewSource(opts...))
	return built, nil
}

// ParseRange converts chart ranges like "5d", "6mo", "1y" to a duration.
// Unknown values fall back to one year.
func ParseRange(r string) time.Duration {
	const year = 365 * 24 * time.Hour
	r = strings.ToLower(strings.TrimSpace(r))

	unit := strings.TrimLeft(r, "0123456789")
	n, err := strconv.Atoi(strings.TrimSuffix(r, unit))
	if err != nil || n <= 0 {
		return year
	}
	switch unit {
	case "d":
		return time.Duration(n) * 24 * time.Hour
	case "wk":
		return time.Duration(n) * 7 * 24 * time.Hour
	case "mo":
		return time.Duration(n) * 30 * 24 * time.Hour
	case "y":
		return time.Duration(n) * year
	}
	return year
}
