package interfaces

import (
	"context"

	"stock-analyst/internal/types"
)

type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*types.AnalysisResult, error)
}
