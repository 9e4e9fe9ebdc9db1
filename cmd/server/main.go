package main

// Package main is the entry point for the dynasty-ai server.
//
// Responsibilities:
//   - Load and validate configuration from YAML and environment variables
//   - Initialize structured logging
//   - Wire the query resolution pipeline (cache, pattern router,
//     documentation retrieval, synthesis, usage tracking, state store)
//   - Serve the REST API, WebSocket endpoint, and Prometheus metrics
//   - Implement graceful shutdown with context cancellation
//
// Resolution Flow:
//   1. Query → normalizer → scoped answer cache
//   2. Cache miss → pattern router → direct state lookup when confident
//   3. Otherwise → documentation retrieval → tiered LLM synthesis
//   4. Every resolution is recorded by the usage tracker
//
// Graceful Shutdown:
//   - Drains in-flight HTTP requests
//   - Closes WebSocket sessions
//   - Closes the SQLite state store

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dynastybot/dynasty-ai/internal/config"
	"github.com/dynastybot/dynasty-ai/internal/logging"
	"github.com/dynastybot/dynasty-ai/internal/server"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	ctx := context.Background()
	mgr, err := config.NewConfigManager(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize configuration: %v\n", err)
		os.Exit(1)
	}
	if err := mgr.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := mgr.Validate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	cfg := mgr.Get(ctx)

	logger, err := logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if !cfg.LLM.Configured {
		logger.Warn("no LLM API key configured, synthesis will report unavailability",
			zap.String("provider", cfg.LLM.Provider))
	}

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", zap.Error(err))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", zap.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("received shutdown signal")

	if err := srv.Stop(); err != nil {
		logger.Error("error stopping server", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
