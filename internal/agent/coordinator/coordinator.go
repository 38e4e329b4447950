// Package coordinator builds the research coordinator: a root agent that
// researches a ticker through a web-search sub-agent, runs the analysis
// pipeline as a tool and writes the final summary.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stock-analyst/internal/agent"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

const (
	RootName     = "ResearchCoordinator"
	ResearchName = "ResearchAgent"

	NoResponse = "Agent did not produce a final response."
)

var rootInstruction = strings.Join([]string{
	"You are a research coordinator.",
	"Use the ResearchAgent tool to find relevant information for the",
	"provided ticker.",
	"After research, create a concise summary.",
	"Then call the analyse_ticker tool to obtain financial analysis.",
	"Combine research and analysis into a final summary for the user.",
	"Use log_progress to record progress when appropriate.",
}, "\n")

const researchInstruction = `You are a specialized research agent.
Your only job is to use Google Search to find 2-3 pieces of relevant information
on the given topic and present the findings with citations.
Be concise and to the point in your findings.`

type Config struct {
	Model         string
	ResearchModel string
	Temperature   float32
	MaxTurns      int
}

type Coordinator struct {
	runner *agent.Runner
	root   *agent.Agent
}

var _ interfaces.Runner = (*Coordinator)(nil)

func New(model agent.Model, analyzer interfaces.Analyzer, cfg Config) *Coordinator {
	runner := agent.NewRunner(model)
	if cfg.ResearchModel == "" {
		cfg.ResearchModel = cfg.Model
	}
	temp := cfg.Temperature

	research := &agent.Agent{
		Name:         ResearchName,
		Description:  "Searches the web for recent information on a company or topic and returns findings with citations.",
		Instruction:  researchInstruction,
		Model:        cfg.ResearchModel,
		GoogleSearch: true,
		Temperature:  &temp,
		MaxTurns:     cfg.MaxTurns,
	}

	root := &agent.Agent{
		Name:        RootName,
		Instruction: rootInstruction,
		Model:       cfg.Model,
		Temperature: &temp,
		MaxTurns:    cfg.MaxTurns,
		Tools: []agent.Tool{
			agent.NewAgentTool(research, runner),
			LogTool(),
			AnalyseTickerTool(analyzer),
		},
	}
	return &Coordinator{runner: runner, root: root}
}

func (c *Coordinator) Summarize(ctx context.Context, ticker string, sink interfaces.EventSink) (string, error) {
	ctx = agent.WithEventSink(ctx, sink)

	res, err := c.runner.Run(ctx, c.root, ticker)
	if err != nil {
		return "", err
	}
	text := res.Text
	if text == "" {
		text = NoResponse
	}
	if sink != nil {
		sink(types.AgentEvent{Type: types.EventFinal, Agent: RootName, Turn: res.Turns, Text: text, Time: time.Now().UTC()})
	}
	return text, nil
}

// LogTool records progress messages from the model
func LogTool() *agent.FunctionTool {
	return agent.NewFunctionTool("log_progress",
		"Records a progress message in the service log.",
		agent.StringParams(map[string]string{"message": "Progress message to record"}),
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			msg, err := agent.StringArg(args, "message")
			if err != nil {
				return nil, err
			}
			logger.Info(ctx, msg, "source", "agent")
			return map[string]any{"status": "logged"}, nil
		})
}

// AnalyseTickerTool runs the full analysis pipeline for a symbol
func AnalyseTickerTool(analyzer interfaces.Analyzer) *agent.FunctionTool {
	return agent.NewFunctionTool("analyse_ticker",
		"Runs the full financial analysis for a ticker: fetches company data, extracts metrics, "+
			"scores news sentiment, generates an analysis script and returns a BUY/SELL/HOLD verdict with reasons.",
		agent.StringParams(map[string]string{"symbol": "Ticker symbol, e.g. AAPL or INFY.NS"}),
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			symbol, err := agent.StringArg(args, "symbol")
			if err != nil {
				return nil, err
			}
			result, err := analyzer.Analyze(ctx, symbol)
			if err != nil {
				return nil, err
			}
			return toMap(result)
		})
}

func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return m, nil
}
