package mdobs

import (
	"context"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/trace"
	"stock-analyst/internal/types"
)

// observableSource wraps MarketData with logging and tracing
type observableSource struct {
	source interfaces.MarketData
}

var _ interfaces.MarketData = (*observableSource)(nil)

func Wrap(source interfaces.MarketData) interfaces.MarketData {
	return &observableSource{source: source}
}

func (obs *observableSource) Fetch(ctx context.Context, symbol string) (types.CompanyData, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.Fetch")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching company data", "symbol", symbol)

	data, err := obs.source.Fetch(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch company data", err, "symbol", symbol)
		return types.CompanyData{}, err
	}

	logger.DebugSkip(ctx, 1, "Company data fetched",
		"symbol", symbol,
		"company", data.Company,
		"financial_rows", len(data.Financials),
		"balance_rows", len(data.BalanceSheet),
		"news", len(data.News),
		"history_points", len(data.History),
	)
	return data, nil
}

type observableFundamentals struct {
	name string
	p    interfaces.FundamentalsProvider
}

// WrapFundamentals traces one named fundamentals provider
func WrapFundamentals(name string, p interfaces.FundamentalsProvider) interfaces.FundamentalsProvider {
	return &observableFundamentals{name: name, p: p}
}

func (of *observableFundamentals) Fundamentals(ctx context.Context, symbol string) (types.Fundamentals, error) {
	timer := logger.StartOperation(ctx, "marketdata."+of.name+".Fundamentals", "symbol", symbol)
	f, err := of.p.Fundamentals(timer.GetContext(), symbol)
	if err != nil {
		timer.EndWithError(err)
		return f, err
	}
	timer.End("income_rows", len(f.Financials), "balance_rows", len(f.BalanceSheet))
	return f, nil
}

type observableHistory struct {
	name string
	p    interfaces.HistoryProvider
}

func WrapHistory(name string, p interfaces.HistoryProvider) interfaces.HistoryProvider {
	return &observableHistory{name: name, p: p}
}

func (oh *observableHistory) History(ctx context.Context, symbol string) (types.PriceHistory, error) {
	timer := logger.StartOperation(ctx, "marketdata."+oh.name+".History", "symbol", symbol)
	h, err := oh.p.History(timer.GetContext(), symbol)
	if err != nil {
		timer.EndWithError(err)
		return h, err
	}
	timer.End("points", len(h.Points))
	return h, nil
}

type observableNews struct {
	name string
	p    interfaces.NewsProvider
}

func WrapNews(name string, p interfaces.NewsProvider) interfaces.NewsProvider {
	return &observableNews{name: name, p: p}
}

func (on *observableNews) Headlines(ctx context.Context, symbol, company string, limit int) ([]types.NewsItem, error) {
	timer := logger.StartOperation(ctx, "marketdata."+on.name+".Headlines", "symbol", symbol)
	items, err := on.p.Headlines(timer.GetContext(), symbol, company, limit)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}
	timer.End("items", len(items))
	return items, nil
}
