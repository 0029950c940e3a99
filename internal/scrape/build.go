package scrape

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/config"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/fetcher"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/robots"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/storage"
	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// Build wires a run-ready engine from configuration: fetchers, the
// renderer when the browser method is on, the robots gate, pacing, sinks,
// and the enabled drivers in fallback order. Callers own Close.
func Build(cfg config.Config, target *types.RegionTarget, logger *slog.Logger) (*Engine, error) {
	httpFetcher := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.UserAgent,
		Headers:      cfg.Headers,
		Timeout:      cfg.RequestTimeout.Duration,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Proxies:      fetcher.ProviderFromPool(cfg.ProxyPool()),
	})

	retry := fetcher.Retryer{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Logger:     logger.With("component", "retry"),
	}

	stats := NewStats()
	origin := originOf(target.StartURL)

	var drivers []Driver
	if cfg.Methods.API {
		drivers = append(drivers, NewAPIDriver(
			httpFetcher, retry, origin, cfg.PageSize, stats,
			logger.With("component", "api"),
		))
	}
	if cfg.Methods.HTML {
		drivers = append(drivers, NewHTMLDriver(
			httpFetcher, retry, stats,
			logger.With("component", "html"),
		))
	}
	if cfg.Methods.Browser {
		renderer := fetcher.NewChromedpRenderer(fetcher.RenderOptions{
			Timeout:      4 * cfg.RequestTimeout.Duration,
			UserAgent:    cfg.UserAgent,
			MaxBodyBytes: cfg.MaxBodyBytes,
		}, logger.With("component", "renderer"))
		drivers = append(drivers, NewBrowserDriver(
			renderer, stats,
			logger.With("component", "browser"),
		))
	}

	var robotsAgent *robots.Agent
	if cfg.Robots.Respect {
		robotsAgent = robots.NewAgent(cfg.Robots, httpFetcher.Client())
	}

	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	jsonl, err := storage.NewJSONLWriter(filepath.Join(cfg.Output.Dir, cfg.Output.Dataset))
	if err != nil {
		return nil, fmt.Errorf("dataset writer: %w", err)
	}
	closers = append(closers, jsonl.Close)
	sinks := []storage.Dataset{jsonl}

	if cfg.Output.PostgresDSN != "" {
		pg, err := storage.NewPostgresWriter(cfg.Output.PostgresDSN)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("postgres writer: %w", err)
		}
		closers = append(closers, pg.Close)
		sinks = append(sinks, pg)
	}

	kv, err := storage.NewFileKV(cfg.Output.Dir)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("kv store: %w", err)
	}

	engine := NewEngine(cfg, target, Deps{
		Drivers: drivers,
		Details: httpFetcher,
		Retry:   retry,
		Robots:  robotsAgent,
		Pacer:   NewPacer(cfg.DelayMin.Duration, cfg.DelayMax.Duration, cfg.RateLimit),
		Dataset: storage.NewPipeline(sinks...),
		KV:      kv,
		Stats:   stats,
		Logger:  logger,
	})
	engine.closers = closers
	return engine, nil
}
