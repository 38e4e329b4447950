package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ternarybob/banner"

	"stock-analyst/internal/agent"
	"stock-analyst/internal/agent/agentobs"
	"stock-analyst/internal/agent/coordinator"
	"stock-analyst/internal/agent/noop"
	"stock-analyst/internal/analysis"
	"stock-analyst/internal/analysis/analysisobs"
	"stock-analyst/internal/decision"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/marketdata"
	"stock-analyst/internal/results"
	"stock-analyst/internal/sentiment"
	"stock-analyst/internal/store"
)

// initializeSystem loads .env and starts the logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializeAnalyzer wires market data, sentiment and the result store into
// an observable pipeline. The returned cleanup closes what was opened.
func initializeAnalyzer(ctx context.Context, cfg *store.Config) (interfaces.Analyzer, interfaces.ResultStore, func(), error) {
	md, err := marketdata.FromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("market data: %w", err)
	}

	rs, err := results.New(ctx, cfg.Storage)
	if err != nil {
		md.Close()
		return nil, nil, nil, err
	}

	pipeline := analysis.New(md.Source, sentiment.New(ctx, cfg.Sentiment),
		analysis.WithStore(rs),
		analysis.WithThresholds(decision.ThresholdsFromMap(cfg.Thresholds)),
	)

	cleanup := func() {
		if err := rs.Close(); err != nil {
			logger.Warn(ctx, "Failed to close result store", "error", err)
		}
		md.Close()
	}
	return analysisobs.Wrap(pipeline), rs, cleanup, nil
}

// initializeRunner picks the Gemini coordinator when an API key is present and
// the noop summarizer otherwise
func initializeRunner(ctx context.Context, cfg *store.Config, analyzer interfaces.Analyzer) interfaces.Runner {
	if cfg.LLM.Provider == "GEMINI" {
		model, err := agent.NewGeminiModel(ctx, os.Getenv(cfg.LLM.APIKeyEnv))
		if err == nil {
			logger.Info(ctx, "Using Gemini research coordinator", "model", cfg.LLM.Model, "research_model", cfg.LLM.ResearchModel)
			return agentobs.Wrap("gemini", coordinator.New(model, analyzer, coordinator.Config{
				Model:         cfg.LLM.Model,
				ResearchModel: cfg.LLM.ResearchModel,
				Temperature:   cfg.LLM.Temperature,
				MaxTurns:      cfg.LLM.MaxTurns,
			}))
		}
		logger.Warn(ctx, "Gemini unavailable - using noop summarizer", "env", cfg.LLM.APIKeyEnv, "error", err)
	}
	return agentobs.Wrap("noop", noop.NewNoopRunner(analyzer))
}

func printBanner(cfg *store.Config) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 60) + banner.ColorReset

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
	fmt.Fprintf(os.Stderr, "%s  %s%s\n", textColor, strings.ToUpper(cfg.App.Name), banner.ColorReset)
	fmt.Fprintf(os.Stderr, "%s  Equity research agent: metrics, news sentiment, verdicts%s\n\n", textColor, banner.ColorReset)
	for _, kv := range [][2]string{
		{"Service URL", fmt.Sprintf("http://%s:%d", hostOrLocal(cfg.Server.Host), cfg.Server.Port)},
		{"LLM", cfg.LLM.Provider + " " + cfg.LLM.Model},
		{"Fundamentals", cfg.MarketData.Fundamentals},
		{"History", cfg.MarketData.History},
		{"News", cfg.MarketData.News},
		{"Sentiment", cfg.Sentiment.Analyzer},
		{"Storage", cfg.Storage.Backend},
	} {
		fmt.Fprintf(os.Stderr, "%s  %-14s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
}

func hostOrLocal(h string) string {
	if h == "" {
		return "localhost"
	}
	return h
}
