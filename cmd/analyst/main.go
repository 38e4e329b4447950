package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-analyst/internal/logger"
	"stock-analyst/internal/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to a YAML or TOML config file")
	flag.Parse()

	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize system: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		logger.ErrorWithErr(context.Background(), "Service exited with error", err)
		_ = logger.Shutdown(context.Background())
		os.Exit(1)
	}
	_ = logger.Shutdown(context.Background())
}

func run(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}
	printBanner(cfg)

	analyzer, rs, cleanup, err := initializeAnalyzer(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(cfg.Server, server.Deps{
		Runner:   initializeRunner(ctx, cfg, analyzer),
		Analyzer: analyzer,
		Results:  rs,
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	logger.Info(ctx, "Service started", "app", cfg.App.Name, "addr", srv.Addr())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
