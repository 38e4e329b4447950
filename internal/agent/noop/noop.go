package noop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

const agentName = "NoopSummarizer"

// NoopRunner is the fallback used when no Gemini API key is configured. It runs
// the analysis pipeline directly and renders the verdict as plain text.
type NoopRunner struct {
	analyzer interfaces.Analyzer
}

var _ interfaces.Runner = (*NoopRunner)(nil)

func NewNoopRunner(analyzer interfaces.Analyzer) *NoopRunner {
	return &NoopRunner{analyzer: analyzer}
}

func (n *NoopRunner) Summarize(ctx context.Context, ticker string, sink interfaces.EventSink) (string, error) {
	logger.Debug(ctx, "Noop runner called - summarizing pipeline verdict", "ticker", ticker)
	send(sink, types.AgentEvent{Type: types.EventToolCall, Agent: agentName, Turn: 1, Tool: "analyse_ticker"})

	result, err := n.analyzer.Analyze(ctx, ticker)
	if err != nil {
		send(sink, types.AgentEvent{Type: types.EventError, Agent: agentName, Turn: 1, Text: err.Error()})
		return "", err
	}
	send(sink, types.AgentEvent{Type: types.EventToolResult, Agent: agentName, Turn: 1, Tool: "analyse_ticker", Text: "ok"})

	summary := Render(result)
	send(sink, types.AgentEvent{Type: types.EventFinal, Agent: agentName, Turn: 1, Text: summary})
	return summary, nil
}

// Render formats a result as a short report
func Render(r *types.AnalysisResult) string {
	var sb strings.Builder
	name := r.Symbol
	if r.Company != "" && r.Company != r.Symbol {
		name = fmt.Sprintf("%s (%s)", r.Company, r.Symbol)
	}
	d := r.VerdictDetails
	fmt.Fprintf(&sb, "%s: %s (score %d, %d positive / %d negative signals)\n", name, r.Verdict, d.Score, d.PosSignals, d.NegSignals)
	for _, reason := range d.Reasons {
		fmt.Fprintf(&sb, "- %s\n", reason)
	}
	if len(r.Headlines) > 0 {
		sb.WriteString("Recent headlines:\n")
		for _, h := range r.Headlines {
			fmt.Fprintf(&sb, "- %s\n", h)
		}
	}
	fmt.Fprintf(&sb, "News sentiment: %.2f", r.SentimentScore)
	return sb.String()
}

func send(sink interfaces.EventSink, ev types.AgentEvent) {
	if sink == nil {
		return
	}
	ev.Time = time.Now().UTC()
	sink(ev)
}
