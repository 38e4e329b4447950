package interfaces

import (
	"context"

	"stock-analyst/internal/types"
)

// MarketData gathers raw company data for a symbol. Implementations degrade
// per field and only fail when nothing usable could be fetched.
type MarketData interface {
	Fetch(ctx context.Context, symbol string) (types.CompanyData, error)
}

type FundamentalsProvider interface {
	Fundamentals(ctx context.Context, symbol string) (types.Fundamentals, error)
}

type HistoryProvider interface {
	History(ctx context.Context, symbol string) (types.PriceHistory, error)
}

// NewsProvider returns at most limit items, newest first. company may be empty.
type NewsProvider interface {
	Headlines(ctx context.Context, symbol, company string, limit int) ([]types.NewsItem, error)
}
