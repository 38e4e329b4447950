package agentobs

import (
	"context"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/trace"
)

// observableRunner wraps a Runner with logging and tracing
type observableRunner struct {
	runner interfaces.Runner
	name   string
}

var _ interfaces.Runner = (*observableRunner)(nil)

func Wrap(name string, runner interfaces.Runner) interfaces.Runner {
	return &observableRunner{runner: runner, name: name}
}

func (obs *observableRunner) Summarize(ctx context.Context, ticker string, sink interfaces.EventSink) (string, error) {
	ctx, span := trace.StartSpan(ctx, "agent.Summarize")
	defer span.End()

	timer := logger.StartOperation(ctx, "agent.summarize", "runner", obs.name, "ticker", ticker)
	ctx = timer.GetContext()

	logger.DebugSkip(ctx, 1, "Requesting summary", "runner", obs.name, "ticker", ticker)

	summary, err := obs.runner.Summarize(ctx, ticker, sink)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Summary failed", err, "runner", obs.name, "ticker", ticker)
		timer.EndWithError(err)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Summary produced", "runner", obs.name, "ticker", ticker, "chars", len(summary))
	timer.End()
	return summary, nil
}
