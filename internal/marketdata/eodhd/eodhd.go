// Package eodhd reads fundamentals, daily prices and news from the EODHD API.
package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"stock-analyst/internal/api"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/types"
)

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

var ErrMissingAPIKey = errors.New("eodhd: api key is not set")

type Client struct {
	apiKey   string
	baseURL  string
	rate     int
	timeout  time.Duration
	lookback time.Duration
	opts     []api.ClientOption
	http     *api.Client
}

var (
	_ interfaces.FundamentalsProvider = (*Client)(nil)
	_ interfaces.HistoryProvider      = (*Client)(nil)
	_ interfaces.NewsProvider         = (*Client)(nil)
)

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithRateLimit(perSecond int) Option {
	return func(c *Client) { c.rate = perSecond }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHistoryRange sets how far back History reaches. Default one year.
func WithHistoryRange(d time.Duration) Option {
	return func(c *Client) { c.lookback = d }
}

// WithAPIOptions passes extra options to the underlying HTTP client
func WithAPIOptions(opts ...api.ClientOption) Option {
	return func(c *Client) { c.opts = append(c.opts, opts...) }
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  DefaultBaseURL,
		rate:     DefaultRateLimit,
		timeout:  DefaultTimeout,
		lookback: 365 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = api.NewClient(append([]api.ClientOption{
		api.WithBaseURL(c.baseURL),
		api.WithTimeout(c.timeout),
		api.WithRateLimit(float64(c.rate), c.rate),
		api.WithLogging(true),
	}, c.opts...)...)
	return c
}

// Ticker converts a Yahoo-style symbol to EODHD's CODE.EXCHANGE form.
// "AAPL" becomes "AAPL.US", "INFY.NS" and "NSE:INFY" become "INFY.NSE".
func Ticker(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	switch {
	case strings.HasPrefix(s, "NSE:"):
		return strings.TrimPrefix(s, "NSE:") + ".NSE"
	case strings.HasSuffix(s, ".NS"):
		return strings.TrimSuffix(s, ".NS") + ".NSE"
	case strings.HasSuffix(s, ".BO"):
		return strings.TrimSuffix(s, ".BO") + ".BSE"
	case strings.Contains(s, "."):
		return s
	}
	return s + ".US"
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")
	return c.http.GetJSON(ctx, path, params, out)
}

// flexFloat64 decodes numbers and numeric strings. Anything else, including null
// and placeholders like "N/A", decodes as missing.
type flexFloat64 struct {
	v *float64
}

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	f.v = nil
	if string(data) == "null" {
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		f.v = &num
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		f.v = &n
	}
	return nil
}

func (f flexFloat64) ptr() *float64 { return f.v }

type statement map[string]map[string]flexFloat64

type fundamentalsResponse struct {
	General struct {
		Code string `json:"Code"`
		Name string `json:"Name"`
		Type string `json:"Type"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization flexFloat64 `json:"MarketCapitalization"`
		PERatio              flexFloat64 `json:"PERatio"`
	} `json:"Highlights"`
	Valuation struct {
		TrailingPE flexFloat64 `json:"TrailingPE"`
		ForwardPE  flexFloat64 `json:"ForwardPE"`
	} `json:"Valuation"`
	Financials struct {
		BalanceSheet struct {
			Yearly statement `json:"yearly"`
		} `json:"Balance_Sheet"`
		IncomeStatement struct {
			Yearly statement `json:"yearly"`
		} `json:"Income_Statement"`
	} `json:"Financials"`
}

// Statement fields mapped to the row labels the metric extractor looks up
var (
	incomeRows = map[string]string{
		"totalRevenue": "Total Revenue",
		"netIncome":    "Net Income",
	}
	balanceRows = map[string]string{
		"longTermDebt":           "Long Term Debt",
		"shortLongTermDebtTotal": "Total Debt",
		"totalStockholderEquity": "Total Stockholder Equity",
	}
)

func (c *Client) Fundamentals(ctx context.Context, symbol string) (types.Fundamentals, error) {
	var resp fundamentalsResponse
	if err := c.get(ctx, "/fundamentals/"+url.PathEscape(Ticker(symbol)), nil, &resp); err != nil {
		return types.Fundamentals{}, fmt.Errorf("eodhd fundamentals: %w", err)
	}

	info := map[string]any{}
	if resp.General.Name != "" {
		info["longName"] = resp.General.Name
	}
	trailing := resp.Valuation.TrailingPE.ptr()
	if trailing == nil {
		trailing = resp.Highlights.PERatio.ptr()
	}
	setInfo(info, "trailingPE", trailing)
	setInfo(info, "forwardPE", resp.Valuation.ForwardPE.ptr())
	setInfo(info, "marketCap", resp.Highlights.MarketCapitalization.ptr())

	return types.Fundamentals{
		Company:      resp.General.Name,
		Info:         info,
		Financials:   toTable(resp.Financials.IncomeStatement.Yearly, incomeRows),
		BalanceSheet: toTable(resp.Financials.BalanceSheet.Yearly, balanceRows),
	}, nil
}

func setInfo(info map[string]any, key string, v *float64) {
	if v != nil && *v != 0 {
		info[key] = *v
	}
}

// toTable pivots period-keyed statements into label-keyed rows, newest period first
func toTable(periods statement, rows map[string]string) types.Table {
	if len(periods) == 0 {
		return nil
	}
	dates := make([]string, 0, len(periods))
	for d := range periods {
		dates = append(dates, d)
	}
	// ISO dates sort lexically
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	table := types.Table{}
	for field, label := range rows {
		values := make([]*float64, len(dates))
		found := false
		for i, d := range dates {
			if v, ok := periods[d][field]; ok && v.ptr() != nil {
				values[i] = v.ptr()
				found = true
			}
		}
		if found {
			table[label] = values
		}
	}
	return table
}

type eodBar struct {
	Date          string      `json:"date"`
	Close         flexFloat64 `json:"close"`
	AdjustedClose flexFloat64 `json:"adjusted_close"`
}

func (c *Client) History(ctx context.Context, symbol string) (types.PriceHistory, error) {
	params := url.Values{}
	params.Set("period", "d")
	params.Set("order", "a")
	params.Set("from", time.Now().Add(-c.lookback).Format("2006-01-02"))

	var bars []eodBar
	if err := c.get(ctx, "/eod/"+url.PathEscape(Ticker(symbol)), params, &bars); err != nil {
		return types.PriceHistory{}, fmt.Errorf("eodhd eod: %w", err)
	}

	points := make([]types.PricePoint, 0, len(bars))
	for _, b := range bars {
		t, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			continue
		}
		px := b.AdjustedClose.ptr()
		if px == nil {
			px = b.Close.ptr()
		}
		if px == nil {
			continue
		}
		points = append(points, types.PricePoint{Time: t, Close: *px})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })

	hist := types.PriceHistory{Points: points}
	if n := len(points); n > 0 {
		hist.Info = map[string]any{"currentPrice": points[n-1].Close}
	}
	return hist, nil
}

type newsResponse struct {
	Date   string `json:"date"`
	Title  string `json:"title"`
	Link   string `json:"link"`
	Source string `json:"source"`
}

func (c *Client) Headlines(ctx context.Context, symbol, _ string, limit int) ([]types.NewsItem, error) {
	params := url.Values{}
	params.Set("s", Ticker(symbol))
	params.Set("limit", strconv.Itoa(limit))

	var resp []newsResponse
	if err := c.get(ctx, "/news", params, &resp); err != nil {
		return nil, fmt.Errorf("eodhd news: %w", err)
	}

	items := make([]types.NewsItem, 0, len(resp))
	for _, n := range resp {
		if strings.TrimSpace(n.Title) == "" {
			continue
		}
		item := types.NewsItem{Title: n.Title, Link: n.Link, Publisher: n.Source}
		if item.Publisher == "" {
			item.Publisher = "EODHD"
		}
		if t, err := time.Parse(time.RFC3339, n.Date); err == nil {
			item.Time = &t
		}
		items = append(items, item)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}
