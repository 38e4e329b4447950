package analysisobs

import (
	"context"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/trace"
	"stock-analyst/internal/types"
)

// observableAnalyzer wraps an Analyzer with logging and tracing
type observableAnalyzer struct {
	analyzer interfaces.Analyzer
}

var _ interfaces.Analyzer = (*observableAnalyzer)(nil)

func Wrap(analyzer interfaces.Analyzer) interfaces.Analyzer {
	return &observableAnalyzer{analyzer: analyzer}
}

func (oa *observableAnalyzer) Analyze(ctx context.Context, symbol string) (*types.AnalysisResult, error) {
	ctx, span := trace.StartSpan(ctx, "analysis.Analyze")
	defer span.End()
	span.SetAttributes(trace.Attributes("symbol", symbol)...)

	timer := logger.StartOperation(ctx, "analysis", "symbol", symbol)

	result, err := oa.analyzer.Analyze(timer.GetContext(), symbol)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}

	logger.Verdict(ctx, result.Symbol, result.Verdict, result.VerdictDetails.Score, result.VerdictDetails.Reasons,
		"company", result.Company,
		"sentiment", result.SentimentScore,
		"analyzer", result.Analyzer,
		"result_id", result.ID,
	)
	timer.End("verdict", result.Verdict)

	return result, nil
}
