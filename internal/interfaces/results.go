package interfaces

import (
	"context"

	"stock-analyst/internal/types"
)

// ListOptions filters stored results. A zero Limit means no limit.
type ListOptions struct {
	Symbol string
	Limit  int
}

// ResultStore persists analysis results. Get of an unknown id returns results.ErrNotFound.
type ResultStore interface {
	Save(ctx context.Context, result *types.AnalysisResult) (string, error)
	Get(ctx context.Context, id string) (*types.AnalysisResult, error)
	List(ctx context.Context, opts ListOptions) ([]*types.AnalysisResult, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
