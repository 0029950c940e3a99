package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/config"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/region"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/scrape"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/status"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to scraper configuration file")
	flag.Parse()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}

	target, err := region.Resolve(cfg.StartURL, cfg.Region)
	if err != nil {
		logger.Error("failed to resolve region from start url", "url", cfg.StartURL, "error", err)
		os.Exit(1)
	}

	engine, err := scrape.Build(*cfg, target, logger)
	if err != nil {
		logger.Error("failed to initialise engine", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.StatusAddr != "" {
		srv := status.NewServer(engine.Stats(), logger)
		go func() {
			if err := srv.Serve(ctx, cfg.StatusAddr); err != nil {
				logger.Error("status server stopped with error", "error", err)
			}
		}()
	}

	runErr := engine.Run(ctx)
	if closeErr := engine.Close(); closeErr != nil {
		logger.Warn("shutdown cleanup reported errors", "error", closeErr)
	}
	if runErr != nil {
		if errors.Is(runErr, scrape.ErrNoResults) {
			logger.Error("scrape produced no results", "error", runErr)
		} else {
			logger.Error("scrape stopped with error", "error", runErr)
		}
		os.Exit(1)
	}
}

func buildLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unsupported log level %q", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Structured {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler), nil
}
