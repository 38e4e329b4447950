package types

import (
	"encoding/json"
	"math"
	"time"
)

// PricePoint is one close in a price history, oldest first
type PricePoint struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
}

type NewsItem struct {
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Publisher string     `json:"publisher"`
	Time      *time.Time `json:"time"`
}

// Table maps a statement row label to its period values, most recent period first.
// A nil entry is a period with no reported value.
type Table map[string][]*float64

// CompanyData is everything the market-data layer could gather for one symbol.
// Any field may be empty.
type CompanyData struct {
	Symbol       string         `json:"symbol"`
	Company      string         `json:"company"`
	Info         map[string]any `json:"info"`
	Financials   Table          `json:"financials"`
	BalanceSheet Table          `json:"balance_sheet"`
	News         []NewsItem     `json:"news"`
	History      []PricePoint   `json:"history"`
}

// Headlines returns the news titles in order
func (d CompanyData) Headlines() []string {
	out := make([]string, 0, len(d.News))
	for _, n := range d.News {
		out = append(out, n.Title)
	}
	return out
}

// Metrics are the extracted fundamentals. A nil field is unavailable.
type Metrics struct {
	CurrentPrice     *float64 `json:"current_price"`
	TrailingPE       *float64 `json:"trailing_pe"`
	ForwardPE        *float64 `json:"forward_pe"`
	MarketCap        *float64 `json:"market_cap"`
	Revenue          *float64 `json:"revenue"`
	NetIncome        *float64 `json:"net_income"`
	RevenueGrowthPct *float64 `json:"revenue_growth_pct"`
	TotalDebt        *float64 `json:"total_debt"`
	TotalEquity      *float64 `json:"total_equity"`
	DebtToEquity     *float64 `json:"debt_to_equity"`
}

// MarshalJSON writes non-finite values as null
func (m Metrics) MarshalJSON() ([]byte, error) {
	type plain Metrics
	return json.Marshal(plain{
		CurrentPrice:     finite(m.CurrentPrice),
		TrailingPE:       finite(m.TrailingPE),
		ForwardPE:        finite(m.ForwardPE),
		MarketCap:        finite(m.MarketCap),
		Revenue:          finite(m.Revenue),
		NetIncome:        finite(m.NetIncome),
		RevenueGrowthPct: finite(m.RevenueGrowthPct),
		TotalDebt:        finite(m.TotalDebt),
		TotalEquity:      finite(m.TotalEquity),
		DebtToEquity:     finite(m.DebtToEquity),
	})
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

const (
	VerdictBuy  = "BUY"
	VerdictSell = "SELL"
	VerdictHold = "HOLD"
)

type Verdict struct {
	Verdict    string   `json:"verdict"`
	Score      int      `json:"score"`
	PosSignals int      `json:"pos_signals"`
	NegSignals int      `json:"neg_signals"`
	Reasons    []string `json:"reasons"`
	Script     string   `json:"script,omitempty"`
}

// Technicals is a price-history snapshot. Zero values mean not enough history.
type Technicals struct {
	SMA20          float64 `json:"sma_20"`
	SMA50          float64 `json:"sma_50"`
	RSI14          float64 `json:"rsi_14"`
	BollingerUpper float64 `json:"bollinger_upper"`
	BollingerLower float64 `json:"bollinger_lower"`
	Points         int     `json:"points"`
}

type AnalysisResult struct {
	ID             string      `json:"id,omitempty"`
	Symbol         string      `json:"symbol"`
	Company        string      `json:"company"`
	Metrics        Metrics     `json:"metrics"`
	Headlines      []string    `json:"headlines"`
	SentimentScore float64     `json:"sentiment_score"`
	Verdict        string      `json:"verdict"`
	VerdictDetails Verdict     `json:"verdict_details"`
	Script         string      `json:"script"`
	Technicals     *Technicals `json:"technicals,omitempty"`
	Analyzer       string      `json:"sentiment_analyzer,omitempty"`
	GeneratedAt    time.Time   `json:"generated_at"`
}

const (
	EventModelTurn  = "model_turn"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventFinal      = "final"
	EventError      = "error"
)

// AgentEvent is one step of an agent run, streamed to observers
type AgentEvent struct {
	Type  string    `json:"type"`
	Agent string    `json:"agent"`
	Turn  int       `json:"turn,omitempty"`
	Tool  string    `json:"tool,omitempty"`
	Text  string    `json:"text,omitempty"`
	Time  time.Time `json:"time"`
}

// Fundamentals is what a fundamentals provider returns for one symbol.
// Table periods are sorted most recent first by the provider.
type Fundamentals struct {
	Company      string         `json:"company"`
	Info         map[string]any `json:"info"`
	Financials   Table          `json:"financials"`
	BalanceSheet Table          `json:"balance_sheet"`
}

// PriceHistory is a daily close series, oldest first, plus any quote fields the
// provider reported alongside it (currentPrice, longName, shortName).
type PriceHistory struct {
	Points []PricePoint   `json:"points"`
	Info   map[string]any `json:"info,omitempty"`
}
