package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/decision"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/sentiment"
	"stock-analyst/internal/types"
)

type fakeSource struct {
	data  types.CompanyData
	err   error
	calls []string
}

func (f *fakeSource) Fetch(_ context.Context, symbol string) (types.CompanyData, error) {
	f.calls = append(f.calls, symbol)
	return f.data, f.err
}

type fakeStore struct {
	saved []*types.AnalysisResult
	err   error
}

func (s *fakeStore) Save(_ context.Context, r *types.AnalysisResult) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, r)
	return "id-1", nil
}
func (s *fakeStore) Get(context.Context, string) (*types.AnalysisResult, error) { return nil, nil }
func (s *fakeStore) List(context.Context, interfaces.ListOptions) ([]*types.AnalysisResult, error) {
	return nil, nil
}
func (s *fakeStore) Delete(context.Context, string) error { return nil }
func (s *fakeStore) Close() error                         { return nil }

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func company() types.CompanyData {
	now := fixedNow
	history := make([]types.PricePoint, 30)
	for i := range history {
		history[i] = types.PricePoint{Time: now.AddDate(0, 0, i-30), Close: 90 + float64(i)}
	}
	return types.CompanyData{
		Symbol: "ACME",
		Info: map[string]any{
			"longName":   "Acme Corp",
			"trailingPE": 12.0,
		},
		Financials: types.Table{
			"Total Revenue": {types.Float(1120), types.Float(1000)},
			"Net Income":    {types.Float(80)},
		},
		BalanceSheet: types.Table{
			"Total Debt":               {types.Float(50)},
			"Total Stockholder Equity": {types.Float(100)},
		},
		News: []types.NewsItem{
			{Title: "Acme beats estimates on strong growth"},
			{Title: "Analysts see great profit ahead"},
		},
		History: history,
	}
}

func TestAnalyzeBuildsResult(t *testing.T) {
	src := &fakeSource{data: company()}
	p := New(src, sentiment.NewKeyword(), WithClock(func() time.Time { return fixedNow }))

	res, err := p.Analyze(context.Background(), " acme ")
	require.NoError(t, err)

	assert.Equal(t, []string{"ACME"}, src.calls)
	assert.Equal(t, "ACME", res.Symbol)
	assert.Equal(t, "Acme Corp", res.Company)
	assert.Equal(t, 119.0, *res.Metrics.CurrentPrice)
	assert.InDelta(t, 12.0, *res.Metrics.RevenueGrowthPct, 1e-9)
	assert.InDelta(t, 0.5, *res.Metrics.DebtToEquity, 1e-9)
	assert.Equal(t, []string{"Acme beats estimates on strong growth", "Analysts see great profit ahead"}, res.Headlines)
	assert.Equal(t, 1.0, res.SentimentScore)
	assert.Equal(t, "keyword", res.Analyzer)

	assert.Equal(t, types.VerdictBuy, res.Verdict)
	assert.Equal(t, res.Verdict, res.VerdictDetails.Verdict)
	assert.Equal(t, 5, res.VerdictDetails.Score)
	assert.Equal(t, res.Script, res.VerdictDetails.Script)
	assert.Contains(t, res.Script, "ACME")
	assert.Equal(t, fixedNow, res.GeneratedAt)

	require.NotNil(t, res.Technicals)
	assert.Equal(t, 30, res.Technicals.Points)
	assert.InDelta(t, 109.5, res.Technicals.SMA20, 1e-9)
	assert.Zero(t, res.Technicals.SMA50)
}

func TestAnalyzeCompanyFallsBackToSymbol(t *testing.T) {
	p := New(&fakeSource{data: types.CompanyData{}}, sentiment.NewKeyword())

	res, err := p.Analyze(context.Background(), "zzz")
	require.NoError(t, err)

	assert.Equal(t, "ZZZ", res.Company)
	assert.Equal(t, types.VerdictHold, res.Verdict)
	assert.Equal(t, 0.0, res.SentimentScore)
	assert.Nil(t, res.Technicals)
	assert.Empty(t, res.ID)
}

func TestAnalyzeEmptySymbol(t *testing.T) {
	src := &fakeSource{}
	p := New(src, sentiment.NewKeyword())

	_, err := p.Analyze(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptySymbol)
	assert.Empty(t, src.calls)
}

func TestAnalyzeFetchError(t *testing.T) {
	boom := errors.New("upstream down")
	p := New(&fakeSource{err: boom}, sentiment.NewKeyword())

	_, err := p.Analyze(context.Background(), "ACME")
	assert.ErrorIs(t, err, boom)
}

func TestAnalyzePersistsResult(t *testing.T) {
	st := &fakeStore{}
	p := New(&fakeSource{data: company()}, sentiment.NewKeyword(), WithStore(st))

	res, err := p.Analyze(context.Background(), "ACME")
	require.NoError(t, err)

	require.Len(t, st.saved, 1)
	assert.Same(t, res, st.saved[0])
	assert.Equal(t, "id-1", res.ID)
}

func TestAnalyzeSurvivesStoreError(t *testing.T) {
	st := &fakeStore{err: errors.New("disk full")}
	p := New(&fakeSource{data: company()}, sentiment.NewKeyword(), WithStore(st))

	res, err := p.Analyze(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Empty(t, res.ID)
	assert.Equal(t, types.VerdictBuy, res.Verdict)
}

func TestAnalyzeUsesThresholds(t *testing.T) {
	th := decision.DefaultThresholds()
	th.PELow = 5
	p := New(&fakeSource{data: company()}, sentiment.NewKeyword(), WithThresholds(th))

	res, err := p.Analyze(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, 4, res.VerdictDetails.Score)
	assert.Equal(t, "PE in range 12.0", res.VerdictDetails.Reasons[4])
}

func TestBuildScript(t *testing.T) {
	script, err := BuildScript(ScriptInput{
		Symbol:      "ACME'; rm -rf /",
		Company:     "Acme\nCorp",
		Metrics:     types.Metrics{Revenue: types.Float(1120)},
		Headlines:   []string{"Line one\nline two"},
		Sentiment:   0.25,
		GeneratedAt: fixedNow,
		ServiceURL:  "http://analyst:8501",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(script, "#!/usr/bin/env sh\n"))
	assert.Contains(t, script, "# Analysis for ACMErm-rf/ (Acme Corp)")
	assert.Contains(t, script, "# Generated 2025-03-14T09:30:00Z")
	assert.Contains(t, script, "# News sentiment: 0.25")
	assert.Contains(t, script, "#   - Line one line two")
	assert.Contains(t, script, `"revenue": 1120`)
	assert.Contains(t, script, `SERVICE_URL="${SERVICE_URL:-http://analyst:8501}"`)
	assert.NotContains(t, script, "'; rm")
}

func TestBuildScriptWithoutHeadlines(t *testing.T) {
	script, err := BuildScript(ScriptInput{Symbol: "X", GeneratedAt: fixedNow})
	require.NoError(t, err)
	assert.Contains(t, script, "#   (none)")
	assert.Contains(t, script, DefaultServiceURL)
}
