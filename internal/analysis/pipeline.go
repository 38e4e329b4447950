// Package analysis sequences one analysis run: fetch company data, extract
// metrics, score headline sentiment, decide, and shape the result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stock-analyst/internal/decision"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/metrics"
	"stock-analyst/internal/ta"
	"stock-analyst/internal/types"
)

var ErrEmptySymbol = errors.New("empty symbol")

const DefaultServiceURL = "http://localhost:8501"

// Pipeline implements interfaces.Analyzer. It holds no per-request state and is
// safe for concurrent use when its collaborators are.
type Pipeline struct {
	source     interfaces.MarketData
	sentiment  interfaces.SentimentAnalyzer
	engine     *decision.Engine
	store      interfaces.ResultStore
	serviceURL string
	now        func() time.Time
}

var _ interfaces.Analyzer = (*Pipeline)(nil)

type Option func(*Pipeline)

// WithStore persists every result. Save failures are logged, never returned.
func WithStore(s interfaces.ResultStore) Option {
	return func(p *Pipeline) { p.store = s }
}

func WithThresholds(t decision.Thresholds) Option {
	return func(p *Pipeline) { p.engine = decision.New(t) }
}

// WithServiceURL sets the base URL the generated script calls back into
func WithServiceURL(u string) Option {
	return func(p *Pipeline) {
		if u != "" {
			p.serviceURL = strings.TrimRight(u, "/")
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(source interfaces.MarketData, sentiment interfaces.SentimentAnalyzer, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:     source,
		sentiment:  sentiment,
		engine:     decision.New(decision.DefaultThresholds()),
		serviceURL: DefaultServiceURL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Analyze(ctx context.Context, symbol string) (*types.AnalysisResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}

	data, err := p.source.Fetch(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	company := data.Company
	if company == "" {
		company = metrics.CompanyName(symbol, data.Info)
	}

	m := metrics.Extract(data)
	headlines := data.Headlines()
	score := p.sentiment.Score(headlines)
	generatedAt := p.now().UTC()

	script, err := BuildScript(ScriptInput{
		Symbol:      symbol,
		Company:     company,
		Metrics:     m,
		Headlines:   headlines,
		Sentiment:   score,
		GeneratedAt: generatedAt,
		ServiceURL:  p.serviceURL,
	})
	if err != nil {
		logger.Warn(ctx, "Failed to render analysis script", "symbol", symbol, "error", err)
	}

	verdict := p.engine.Decide(m, score)
	verdict.Script = script

	result := &types.AnalysisResult{
		Symbol:         symbol,
		Company:        company,
		Metrics:        m,
		Headlines:      headlines,
		SentimentScore: score,
		Verdict:        verdict.Verdict,
		VerdictDetails: verdict,
		Script:         script,
		Analyzer:       p.sentiment.Name(),
		GeneratedAt:    generatedAt,
	}
	if len(data.History) > 0 {
		tech := ta.Snapshot(data.History)
		result.Technicals = &tech
	}

	if p.store != nil {
		id, err := p.store.Save(ctx, result)
		if err != nil {
			logger.Warn(ctx, "Failed to persist analysis result", "symbol", symbol, "error", err)
		} else {
			result.ID = id
		}
	}

	return result, nil
}
