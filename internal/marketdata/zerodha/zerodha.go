// Package zerodha serves NSE price history from Kite Connect.
package zerodha

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

var (
	ErrNotConfigured = errors.New("zerodha: api key or access token missing")
	ErrUnknownSymbol = errors.New("zerodha: unknown trading symbol")
)

// kiteAPI is the subset of *kiteconnect.Client used here
type kiteAPI interface {
	GetInstrumentsByExchange(exchange string) (kiteconnect.Instruments, error)
	GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error)
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
}

type Provider struct {
	kite     kiteAPI
	exchange string
	lookback time.Duration
	now      func() time.Time

	mapper   *instrumentMapper
	loadMu   sync.Mutex
	loadedAt time.Time
}

var _ interfaces.HistoryProvider = (*Provider)(nil)

type Option func(*Provider)

func WithExchange(ex string) Option {
	return func(p *Provider) {
		if ex != "" {
			p.exchange = strings.ToUpper(ex)
		}
	}
}

func WithLookback(d time.Duration) Option {
	return func(p *Provider) { p.lookback = d }
}

// New builds a provider on a Kite Connect REST client
func New(apiKey, accessToken string, opts ...Option) (*Provider, error) {
	if apiKey == "" || accessToken == "" {
		return nil, ErrNotConfigured
	}
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	return newProvider(kc, opts...), nil
}

func newProvider(kite kiteAPI, opts ...Option) *Provider {
	p := &Provider{
		kite:     kite,
		exchange: "NSE",
		lookback: 365 * 24 * time.Hour,
		now:      time.Now,
		mapper:   newInstrumentMapper(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TradingSymbol strips exchange decorations: "INFY.NS" and "NSE:INFY" become "INFY"
func TradingSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(s, ".NS")
}

func (p *Provider) History(ctx context.Context, symbol string) (types.PriceHistory, error) {
	if err := p.ensureInstruments(ctx); err != nil {
		return types.PriceHistory{}, err
	}

	sym := TradingSymbol(symbol)
	in, ok := p.mapper.lookup(sym)
	if !ok {
		return types.PriceHistory{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}

	if err := ctx.Err(); err != nil {
		return types.PriceHistory{}, err
	}
	to := p.now()
	candles, err := p.kite.GetHistoricalData(in.token, "day", to.Add(-p.lookback), to, false, false)
	if err != nil {
		return types.PriceHistory{}, fmt.Errorf("zerodha historical data: %w", err)
	}

	points := make([]types.PricePoint, 0, len(candles))
	for _, c := range candles {
		points = append(points, types.PricePoint{Time: c.Date.Time, Close: c.Close})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })

	info := map[string]any{}
	if in.name != "" {
		info["longName"] = in.name
	}

	key := p.exchange + ":" + sym
	if ltp, err := p.kite.GetLTP(key); err != nil {
		logger.Warn(ctx, "Kite LTP unavailable", "instrument", key, "error", err)
	} else if q, ok := ltp[key]; ok && q.LastPrice > 0 {
		info["currentPrice"] = q.LastPrice
	}
	if _, ok := info["currentPrice"]; !ok && len(points) > 0 {
		info["currentPrice"] = points[len(points)-1].Close
	}

	return types.PriceHistory{Points: points, Info: info}, nil
}

// ensureInstruments loads the exchange instrument dump once a day
func (p *Provider) ensureInstruments(ctx context.Context) error {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	if p.mapper.size() > 0 && p.now().Sub(p.loadedAt) < 24*time.Hour {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	list, err := p.kite.GetInstrumentsByExchange(p.exchange)
	if err != nil {
		return fmt.Errorf("zerodha instruments: %w", err)
	}
	p.mapper.load(list)
	p.loadedAt = p.now()

	logger.Info(ctx, "Loaded Kite instruments", "exchange", p.exchange, "count", p.mapper.size())
	return nil
}
