// Package yahoo reads daily price history and quote names from the Yahoo Finance
// chart API, which needs no crumb or API key.
package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"stock-analyst/internal/api"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/types"
)

const (
	DefaultChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultRange    = "1y"
)

type Client struct {
	http       *api.Client
	chartRange string
}

var _ interfaces.HistoryProvider = (*Client)(nil)

type Option func(*config)

type config struct {
	chartURL string
	rng      string
	timeout  time.Duration
	extra    []api.ClientOption
}

func WithChartURL(u string) Option {
	return func(c *config) { c.chartURL = strings.TrimRight(u, "/") }
}

// WithRange sets the chart range parameter ("6mo", "1y", "2y", ...)
func WithRange(r string) Option {
	return func(c *config) { c.rng = r }
}

func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

func WithAPIOptions(opts ...api.ClientOption) Option {
	return func(c *config) { c.extra = append(c.extra, opts...) }
}

func New(opts ...Option) *Client {
	cfg := config{chartURL: DefaultChartURL, rng: DefaultRange, timeout: 15 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{
		http: api.NewClient(append([]api.ClientOption{
			api.WithBaseURL(cfg.chartURL),
			api.WithTimeout(cfg.timeout),
			api.WithHeaders(api.YahooFinanceHeaders()),
			api.WithLogging(true),
		}, cfg.extra...)...),
		chartRange: cfg.rng,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string   `json:"currency"`
				Symbol             string   `json:"symbol"`
				ExchangeName       string   `json:"exchangeName"`
				LongName           string   `json:"longName"`
				ShortName          string   `json:"shortName"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Symbol converts "NSE:INFY" to Yahoo's "INFY.NS"; other symbols pass through
func Symbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if rest, ok := strings.CutPrefix(s, "NSE:"); ok {
		return rest + ".NS"
	}
	return s
}

func (c *Client) History(ctx context.Context, symbol string) (types.PriceHistory, error) {
	q := url.Values{}
	q.Set("range", c.chartRange)
	q.Set("interval", "1d")

	var resp chartResponse
	if err := c.http.GetJSON(ctx, "/"+url.PathEscape(Symbol(symbol)), q, &resp); err != nil {
		return types.PriceHistory{}, fmt.Errorf("yahoo chart: %w", err)
	}
	if e := resp.Chart.Error; e != nil {
		return types.PriceHistory{}, fmt.Errorf("yahoo chart: %s: %s", e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return types.PriceHistory{}, fmt.Errorf("yahoo chart: no data for %s", symbol)
	}

	r := resp.Chart.Result[0]
	var closes []*float64
	if len(r.Indicators.Quote) > 0 {
		closes = r.Indicators.Quote[0].Close
	}

	points := make([]types.PricePoint, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, types.PricePoint{Time: time.Unix(ts, 0).UTC(), Close: *closes[i]})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })

	info := map[string]any{}
	if p := r.Meta.RegularMarketPrice; p != nil {
		info["currentPrice"] = *p
	}
	if r.Meta.LongName != "" {
		info["longName"] = r.Meta.LongName
	}
	if r.Meta.ShortName != "" {
		info["shortName"] = r.Meta.ShortName
	}
	if r.Meta.Currency != "" {
		info["currency"] = r.Meta.Currency
	}

	return types.PriceHistory{Points: points, Info: info}, nil
}
