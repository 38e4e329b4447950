// Package marketdata assembles types.CompanyData from independent providers for
// fundamentals, price history and news. Each provider is optional and fails on
// its own; Fetch only errors when every configured provider failed.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

var ErrNoData = errors.New("no market data available")

const DefaultNewsLimit = 5

type Source struct {
	fundamentals interfaces.FundamentalsProvider
	history      interfaces.HistoryProvider
	nseHistory   interfaces.HistoryProvider
	news         interfaces.NewsProvider
	newsLimit    int
	cache        *Cache
}

var _ interfaces.MarketData = (*Source)(nil)

type Option func(*Source)

func WithFundamentals(p interfaces.FundamentalsProvider) Option {
	return func(s *Source) { s.fundamentals = p }
}

func WithHistory(p interfaces.HistoryProvider) Option {
	return func(s *Source) { s.history = p }
}

// WithNSEHistory routes NSE symbols (".NS" suffix or "NSE:" prefix) to p
func WithNSEHistory(p interfaces.HistoryProvider) Option {
	return func(s *Source) { s.nseHistory = p }
}

func WithNews(p interfaces.NewsProvider, limit int) Option {
	return func(s *Source) {
		s.news = p
		if limit > 0 {
			s.newsLimit = limit
		}
	}
}

// WithCache caches fundamentals and history responses. News is never cached here;
// the news service keeps its own shorter-lived cache.
func WithCache(c *Cache) Option {
	return func(s *Source) { s.cache = c }
}

func NewSource(opts ...Option) *Source {
	s := &Source{newsLimit: DefaultNewsLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsNSE reports whether symbol names an NSE listing
func IsNSE(symbol string) bool {
	s := strings.ToUpper(symbol)
	return strings.HasSuffix(s, ".NS") || strings.HasPrefix(s, "NSE:")
}

func (s *Source) Fetch(ctx context.Context, symbol string) (types.CompanyData, error) {
	data := types.CompanyData{Symbol: symbol, Info: map[string]any{}}

	var (
		wg       sync.WaitGroup
		fund     types.Fundamentals
		hist     types.PriceHistory
		fundErr  error
		histErr  error
		tried    int
		failures []error
	)

	if s.fundamentals != nil {
		tried++
		wg.Add(1)
		go func() {
			defer wg.Done()
			fund, fundErr = cached(s.cache, MakeKey("fundamentals", symbol), func() (types.Fundamentals, error) {
				return s.fundamentals.Fundamentals(ctx, symbol)
			})
		}()
	}

	if hp := s.historyFor(symbol); hp != nil {
		tried++
		wg.Add(1)
		go func() {
			defer wg.Done()
			hist, histErr = cached(s.cache, MakeKey("history", symbol), func() (types.PriceHistory, error) {
				return hp.History(ctx, symbol)
			})
		}()
	}
	wg.Wait()

	if fundErr != nil {
		logger.Warn(ctx, "Fundamentals unavailable", "symbol", symbol, "error", fundErr)
		failures = append(failures, fmt.Errorf("fundamentals: %w", fundErr))
	} else {
		data.Company = fund.Company
		data.Financials = fund.Financials
		data.BalanceSheet = fund.BalanceSheet
		for k, v := range fund.Info {
			data.Info[k] = v
		}
	}

	if histErr != nil {
		logger.Warn(ctx, "Price history unavailable", "symbol", symbol, "error", histErr)
		failures = append(failures, fmt.Errorf("history: %w", histErr))
	} else {
		data.History = hist.Points
		// quote fields fill gaps only; fundamentals win
		for k, v := range hist.Info {
			if _, ok := data.Info[k]; !ok {
				data.Info[k] = v
			}
		}
	}

	if data.Company == "" {
		for _, k := range []string{"longName", "shortName"} {
			if name, ok := data.Info[k].(string); ok && name != "" {
				data.Company = name
				break
			}
		}
	}

	if s.news != nil {
		tried++
		items, err := s.news.Headlines(ctx, symbol, data.Company, s.newsLimit)
		if err != nil {
			logger.Warn(ctx, "Headlines unavailable", "symbol", symbol, "error", err)
			failures = append(failures, fmt.Errorf("news: %w", err))
		} else {
			if len(items) > s.newsLimit {
				items = items[:s.newsLimit]
			}
			data.News = items
		}
	}

	if tried > 0 && len(failures) == tried {
		return types.CompanyData{}, fmt.Errorf("%w for %s: %w", ErrNoData, symbol, errors.Join(failures...))
	}
	return data, nil
}

func (s *Source) historyFor(symbol string) interfaces.HistoryProvider {
	if s.nseHistory != nil && IsNSE(symbol) {
		return s.nseHistory
	}
	return s.history
}
