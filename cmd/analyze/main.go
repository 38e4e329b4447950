// Command analyze runs the analysis pipeline for one or more tickers and
// prints the results without starting the HTTP service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"stock-analyst/internal/agent/noop"
	"stock-analyst/internal/analysis"
	"stock-analyst/internal/analysis/analysisobs"
	"stock-analyst/internal/decision"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/marketdata"
	"stock-analyst/internal/results"
	"stock-analyst/internal/sentiment"
	"stock-analyst/internal/store"
	"stock-analyst/internal/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to a YAML or TOML config file")
	asJSON := flag.Bool("json", false, "print results as JSON lines")
	persist := flag.Bool("save", false, "save results to the configured result store")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: analyze [flags] TICKER...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	os.Exit(runMain(*configPath, *asJSON, *persist, flag.Args()))
}

// runMain returns the exit code once the logger is flushed and the signal
// handler released
func runMain(configPath string, asJSON, persist bool, tickers []string) int {
	_ = godotenv.Load()
	if err := logger.InitWithConfig(logger.LogConfig{
		Level:  envOr("LOG_LEVEL", "WARN"),
		Format: "text",
		Output: os.Stderr,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	failed, err := run(ctx, configPath, asJSON, persist, tickers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		return 1
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func run(ctx context.Context, configPath string, asJSON, persist bool, tickers []string) (int, error) {
	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		return 0, err
	}

	md, err := marketdata.FromConfig(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer md.Close()

	opts := []analysis.Option{analysis.WithThresholds(decision.ThresholdsFromMap(cfg.Thresholds))}
	if persist {
		rs, err := results.New(ctx, cfg.Storage)
		if err != nil {
			return 0, err
		}
		defer rs.Close()
		opts = append(opts, analysis.WithStore(rs))
	}
	analyzer := analysisobs.Wrap(analysis.New(md.Source, sentiment.New(ctx, cfg.Sentiment), opts...))

	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for _, t := range tickers {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		res, err := analyzer.Analyze(ctx, t)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", t, err)
			failed++
			continue
		}
		if asJSON {
			if err := enc.Encode(res); err != nil {
				return failed, err
			}
			continue
		}
		printReport(res)
	}
	return failed, nil
}

func printReport(r *types.AnalysisResult) {
	fmt.Println(noop.Render(r))
	if r.ID != "" {
		fmt.Printf("Saved as %s\n", r.ID)
	}
	fmt.Println()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
