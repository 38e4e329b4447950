package decision

// Threshold keys accepted in override maps and config files
const (
	KeyRevenueGrowthGoodPct = "revenue_growth_good_pct"
	KeyRevenueGrowthBadPct  = "revenue_growth_bad_pct"
	KeyDebtToEquityGood     = "debt_to_equity_good"
	KeyDebtToEquityBad      = "debt_to_equity_bad"
	KeySentimentGood        = "sentiment_good"
	KeySentimentBad         = "sentiment_bad"
	KeyPELow                = "pe_low"
	KeyPEHigh               = "pe_high"
)

type Thresholds struct {
	RevenueGrowthGoodPct float64 `json:"revenue_growth_good_pct"`
	RevenueGrowthBadPct  float64 `json:"revenue_growth_bad_pct"`
	DebtToEquityGood     float64 `json:"debt_to_equity_good"`
	DebtToEquityBad      float64 `json:"debt_to_equity_bad"`
	SentimentGood        float64 `json:"sentiment_good"`
	SentimentBad         float64 `json:"sentiment_bad"`
	PELow                float64 `json:"pe_low"`
	PEHigh               float64 `json:"pe_high"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		RevenueGrowthGoodPct: 5.0,
		RevenueGrowthBadPct:  -5.0,
		DebtToEquityGood:     1.0,
		DebtToEquityBad:      2.0,
		SentimentGood:        0.15,
		SentimentBad:         -0.15,
		PELow:                15.0,
		PEHigh:               40.0,
	}
}

// ThresholdsFromMap starts from the defaults and replaces only the keys present in
// overrides. Unknown keys are ignored.
func ThresholdsFromMap(overrides map[string]float64) Thresholds {
	t := DefaultThresholds()
	fields := map[string]*float64{
		KeyRevenueGrowthGoodPct: &t.RevenueGrowthGoodPct,
		KeyRevenueGrowthBadPct:  &t.RevenueGrowthBadPct,
		KeyDebtToEquityGood:     &t.DebtToEquityGood,
		KeyDebtToEquityBad:      &t.DebtToEquityBad,
		KeySentimentGood:        &t.SentimentGood,
		KeySentimentBad:         &t.SentimentBad,
		KeyPELow:                &t.PELow,
		KeyPEHigh:               &t.PEHigh,
	}
	for k, v := range overrides {
		if p, ok := fields[k]; ok {
			*p = v
		}
	}
	return t
}
