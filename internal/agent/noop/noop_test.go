package noop

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/types"
)

type stubAnalyzer struct {
	result *types.AnalysisResult
	err    error
}

func (s stubAnalyzer) Analyze(context.Context, string) (*types.AnalysisResult, error) {
	return s.result, s.err
}

func TestSummarize(t *testing.T) {
	result := &types.AnalysisResult{
		Symbol:         "AAPL",
		Company:        "Apple Inc.",
		Verdict:        types.VerdictBuy,
		Headlines:      []string{"Apple beats"},
		SentimentScore: 0.42,
		VerdictDetails: types.Verdict{Score: 2, PosSignals: 3, NegSignals: 1, Reasons: []string{"positive net income", "low PE 12.0"}},
	}

	var events []string
	summary, err := NewNoopRunner(stubAnalyzer{result: result}).Summarize(context.Background(), "aapl",
		func(e types.AgentEvent) { events = append(events, e.Type) })
	require.NoError(t, err)

	assert.Equal(t, "Apple Inc. (AAPL): BUY (score 2, 3 positive / 1 negative signals)\n"+
		"- positive net income\n- low PE 12.0\n"+
		"Recent headlines:\n- Apple beats\n"+
		"News sentiment: 0.42", summary)
	assert.Equal(t, []string{types.EventToolCall, types.EventToolResult, types.EventFinal}, events)
}

func TestSummarizeError(t *testing.T) {
	_, err := NewNoopRunner(stubAnalyzer{err: errors.New("boom")}).Summarize(context.Background(), "X", nil)
	assert.EqualError(t, err, "boom")
}
