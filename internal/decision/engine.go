// Package decision derives a BUY/SELL/HOLD verdict from extracted metrics and a
// news sentiment score.
//
// Five signals are evaluated in a fixed order (net income, revenue growth,
// leverage, sentiment, P/E). Each appends exactly one reason and may add a
// positive or negative point. The verdict is BUY when pos-neg >= 2, SELL when
// it is <= -2 and HOLD otherwise.
package decision

import (
	"fmt"
	"math"

	"stock-analyst/internal/types"
)

// Engine applies a fixed set of thresholds. The zero value is not usable; use New.
type Engine struct {
	t Thresholds
}

func New(t Thresholds) *Engine {
	return &Engine{t: t}
}

func (e *Engine) Thresholds() Thresholds {
	return e.t
}

// Decide is a convenience for one-off decisions with partial threshold overrides.
func Decide(m types.Metrics, sentiment float64, overrides map[string]float64) types.Verdict {
	return New(ThresholdsFromMap(overrides)).Decide(m, sentiment)
}

type tally struct {
	pos, neg int
	reasons  []string
}

func (t *tally) add(delta int, reason string) {
	switch {
	case delta > 0:
		t.pos++
	case delta < 0:
		t.neg++
	}
	t.reasons = append(t.reasons, reason)
}

func (e *Engine) Decide(m types.Metrics, sentiment float64) types.Verdict {
	tl := &tally{reasons: make([]string, 0, 5)}

	tl.add(e.netIncome(m.NetIncome))
	tl.add(e.revenueGrowth(m.RevenueGrowthPct))
	tl.add(e.leverage(m.DebtToEquity))
	tl.add(e.sentiment(sentiment))
	tl.add(e.valuation(m.TrailingPE, m.ForwardPE))

	score := tl.pos - tl.neg
	verdict := types.VerdictHold
	switch {
	case score >= 2:
		verdict = types.VerdictBuy
	case score <= -2:
		verdict = types.VerdictSell
	}

	return types.Verdict{
		Verdict:    verdict,
		Score:      score,
		PosSignals: tl.pos,
		NegSignals: tl.neg,
		Reasons:    tl.reasons,
	}
}

func (e *Engine) netIncome(v *float64) (int, string) {
	switch {
	case v == nil:
		return 0, "net income unavailable"
	case *v > 0:
		return 1, "positive net income"
	default:
		return -1, "negative net income or not reported"
	}
}

func (e *Engine) revenueGrowth(v *float64) (int, string) {
	switch {
	case v == nil:
		return 0, "revenue growth unavailable"
	case *v > e.t.RevenueGrowthGoodPct:
		return 1, fmt.Sprintf("revenue growth %.1f%%", *v)
	case *v < e.t.RevenueGrowthBadPct:
		return -1, fmt.Sprintf("revenue decline %.1f%%", *v)
	default:
		return 0, fmt.Sprintf("revenue growth muted %.1f%%", *v)
	}
}

func (e *Engine) leverage(v *float64) (int, string) {
	switch {
	case v == nil:
		return 0, "debt/equity unavailable"
	case *v < e.t.DebtToEquityGood:
		return 1, fmt.Sprintf("low leverage d/e %.2f", *v)
	case *v > e.t.DebtToEquityBad:
		return -1, fmt.Sprintf("high leverage d/e %.2f", *v)
	default:
		return 0, fmt.Sprintf("moderate leverage d/e %.2f", *v)
	}
}

func (e *Engine) sentiment(s float64) (int, string) {
	switch {
	case s > e.t.SentimentGood:
		return 1, fmt.Sprintf("positive news sentiment %.2f", s)
	case s < e.t.SentimentBad:
		return -1, fmt.Sprintf("negative news sentiment %.2f", s)
	default:
		return 0, fmt.Sprintf("neutral news sentiment %.2f", s)
	}
}

func (e *Engine) valuation(trailing, forward *float64) (int, string) {
	// a zero trailing P/E counts as missing
	pe := trailing
	if pe == nil || *pe == 0 {
		pe = forward
	}
	switch {
	case pe == nil:
		return 0, "PE unavailable"
	case math.IsNaN(*pe) || math.IsInf(*pe, 0):
		return 0, "PE parsing error"
	case *pe < e.t.PELow:
		return 1, fmt.Sprintf("low PE %.1f", *pe)
	case *pe > e.t.PEHigh:
		return -1, fmt.Sprintf("high PE %.1f", *pe)
	default:
		return 0, fmt.Sprintf("PE in range %.1f", *pe)
	}
}
