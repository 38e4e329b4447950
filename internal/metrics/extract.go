// Package metrics turns raw company data into the fixed set of fundamentals
// the decision engine reads. Every metric degrades to nil on its own.
package metrics

import (
	"math"
	"strconv"
	"strings"

	"stock-analyst/internal/types"
)

// Row label aliases, tried in order. The first label present in the table wins.
var (
	RevenueLabels   = []string{"Total Revenue", "Revenue", "Revenues"}
	NetIncomeLabels = []string{"Net Income", "Net Income Applicable To Common Shares", "NetIncomeLoss"}
	DebtLabels      = []string{"Long Term Debt", "Total Debt", "Long-term Debt"}
	EquityLabels    = []string{"Total Stockholder Equity", "Total Stockholders' Equity", "Total Equity", "Stockholders Equity"}
)

// Info keys read from CompanyData.Info
const (
	KeyCurrentPrice = "currentPrice"
	KeyTrailingPE   = "trailingPE"
	KeyForwardPE    = "forwardPE"
	KeyMarketCap    = "marketCap"
	KeyLongName     = "longName"
	KeyShortName    = "shortName"
)

// Extract never fails. Missing or malformed inputs leave the affected metric nil.
func Extract(data types.CompanyData) types.Metrics {
	m := types.Metrics{
		CurrentPrice: currentPrice(data),
		TrailingPE:   passThrough(data.Info, KeyTrailingPE),
		ForwardPE:    passThrough(data.Info, KeyForwardPE),
		MarketCap:    passThrough(data.Info, KeyMarketCap),
		Revenue:      latest(data.Financials, RevenueLabels),
		NetIncome:    latest(data.Financials, NetIncomeLabels),
		TotalDebt:    latest(data.BalanceSheet, DebtLabels),
		TotalEquity:  latest(data.BalanceSheet, EquityLabels),
	}
	m.RevenueGrowthPct = growth(data.Financials, RevenueLabels)
	m.DebtToEquity = ratio(m.TotalDebt, m.TotalEquity)
	return m
}

// CompanyName prefers the long name, then the short name, then the upper-cased symbol.
func CompanyName(symbol string, info map[string]any) string {
	for _, k := range []string{KeyLongName, KeyShortName} {
		if s, ok := info[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return strings.ToUpper(symbol)
}

func currentPrice(data types.CompanyData) *float64 {
	if n := len(data.History); n > 0 {
		c := data.History[n-1].Close
		if !math.IsNaN(c) && !math.IsInf(c, 0) {
			return &c
		}
	}
	// a zero quote means the provider has no price
	v := passThrough(data.Info, KeyCurrentPrice)
	if v == nil || math.IsNaN(*v) || *v == 0 {
		return nil
	}
	return v
}

// passThrough returns info[key] as a float. A present value that is not a number
// comes back as NaN so callers can tell "unparseable" from "absent".
func passThrough(info map[string]any, key string) *float64 {
	raw, ok := info[key]
	if !ok || raw == nil {
		return nil
	}
	f, ok := toFloat(raw)
	if !ok {
		return types.Float(math.NaN())
	}
	return &f
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// row returns the values of the first alias present in t
func row(t types.Table, labels []string) ([]*float64, bool) {
	for _, l := range labels {
		if vals, ok := t[l]; ok {
			return vals, true
		}
	}
	return nil, false
}

func latest(t types.Table, labels []string) *float64 {
	vals, ok := row(t, labels)
	if !ok || len(vals) == 0 {
		return nil
	}
	return vals[0]
}

func growth(t types.Table, labels []string) *float64 {
	vals, ok := row(t, labels)
	if !ok || len(vals) < 2 {
		return nil
	}
	cur, prev := vals[0], vals[1]
	if cur == nil || prev == nil || *prev == 0 {
		return nil
	}
	return types.Float((*cur - *prev) / math.Abs(*prev) * 100)
}

func ratio(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	return types.Float(*num / *den)
}
