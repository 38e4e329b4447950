package interfaces

import (
	"context"

	"stock-analyst/internal/types"
)

// EventSink receives agent events as they happen. It may be nil.
type EventSink func(types.AgentEvent)

// Runner produces the final natural-language summary for a ticker
type Runner interface {
	Summarize(ctx context.Context, ticker string, sink EventSink) (string, error)
}
