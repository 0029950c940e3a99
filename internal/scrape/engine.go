// Package scrape drives a run: it walks the method fallback chain, claims
// result slots, fans detail fetches out to a worker pool, and persists
// reconciled records.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/config"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/extract"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/fetcher"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/reconcile"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/robots"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/storage"
	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// summaryKey is where the run summary lands in the key-value store.
const summaryKey = "SUMMARY"

// ErrNoResults is returned when a run ends without a single saved record.
var ErrNoResults = errors.New("no properties saved")

// Deps are the collaborators an engine drives. The command wires the real
// ones; tests swap in fakes.
type Deps struct {
	Drivers []Driver
	Details fetcher.Fetcher
	Retry   fetcher.Retryer
	Robots  *robots.Agent
	Pacer   *Pacer
	Dataset storage.Dataset
	KV      storage.KVStore
	Stats   *Stats
	Logger  *slog.Logger
}

// Engine owns all run state: the dedupe set, the result quota, and the
// shared counters. Nothing here is global.
type Engine struct {
	cfg    config.Config
	target *types.RegionTarget

	drivers []Driver
	details fetcher.Fetcher
	retry   fetcher.Retryer
	robots  *robots.Agent
	pacer   *Pacer
	dataset storage.Dataset
	kv      storage.KVStore
	stats   *Stats
	logger  *slog.Logger

	origin string
	claims *ClaimSet
	quota  *quota
	pool   *WorkerPool
	wg     sync.WaitGroup

	closers   []func() error
	closeOnce sync.Once
}

// NewEngine assembles an engine over the given collaborators.
func NewEngine(cfg config.Config, target *types.RegionTarget, deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stats := deps.Stats
	if stats == nil {
		stats = NewStats()
	}
	return &Engine{
		cfg:     cfg,
		target:  target,
		drivers: deps.Drivers,
		details: deps.Details,
		retry:   deps.Retry,
		robots:  deps.Robots,
		pacer:   deps.Pacer,
		dataset: deps.Dataset,
		kv:      deps.KV,
		stats:   stats,
		logger:  logger.With("component", "engine"),
		origin:  originOf(target.StartURL),
		claims:  NewClaimSet(),
		quota:   newQuota(cfg.ResultsWanted),
	}
}

// Stats exposes the shared counters for the status endpoint.
func (e *Engine) Stats() *Stats {
	return e.stats
}

// Close releases resources owned by the engine's sinks.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		for _, closer := range e.closers {
			if cerr := closer(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}
	})
	return err
}

// Run executes the fallback chain until the quota fills, the wall clock
// budget runs out, every method is exhausted, or the context ends. It
// returns ErrNoResults when nothing was saved.
func (e *Engine) Run(ctx context.Context) error {
	start := time.Now()
	var deadline time.Time
	if d := e.cfg.MaxRuntime.Duration; d > 0 {
		deadline = start.Add(d)
	}

	if len(e.drivers) == 0 {
		return errors.New("no acquisition methods enabled")
	}
	if e.dataset == nil {
		return errors.New("no dataset configured")
	}
	if e.robots != nil && !e.robots.Allowed(ctx, e.target.StartURL) {
		return fmt.Errorf("robots.txt disallows %s", e.target.StartURL)
	}

	pool, err := NewWorkerPool(ctx, e.cfg.MaxConcurrency, queueSize(e.cfg.MaxConcurrency))
	if err != nil {
		return err
	}
	e.pool = pool

	e.logger.Info("run starting",
		"region", e.target.ID,
		"regionType", string(e.target.Type),
		"market", e.target.Market,
		"wanted", e.cfg.ResultsWanted,
	)

	for _, drv := range e.drivers {
		if e.shouldStop(ctx, deadline) || e.quota.full() {
			break
		}
		e.runMethod(ctx, deadline, drv)
	}

	// Deadline and quota stop new pages; dispatched work still finishes.
	e.stats.SetState("draining")
	e.wg.Wait()
	pool.Close()
	e.stats.SetState("done")

	elapsed := time.Since(start)
	saved := e.stats.Saved()
	summary := types.RunSummary{
		PropertiesSaved: saved,
		RuntimeSeconds:  elapsed.Seconds(),
		MethodsUsed:     e.stats.MethodsUsed(),
	}

	if saved == 0 {
		snap := e.stats.Snapshot()
		e.logger.Error("run produced nothing",
			"runtime", elapsed.Round(time.Millisecond).String(),
			"errors", snap.Errors,
			"blocked", snap.Blocked,
		)
		return fmt.Errorf("%w after %s", ErrNoResults, elapsed.Round(time.Millisecond))
	}

	if e.kv != nil {
		if err := e.kv.Set(ctx, summaryKey, summary); err != nil {
			return fmt.Errorf("persist run summary: %w", err)
		}
	}
	e.logger.Info("run complete",
		"saved", saved,
		"runtime", elapsed.Round(time.Millisecond).String(),
		"methods", methodNames(summary.MethodsUsed),
	)
	return nil
}

// runMethod walks one method's pages sequentially. Any blocking
// classification or hard failure abandons the method; an empty page falls
// through to the next one.
func (e *Engine) runMethod(ctx context.Context, deadline time.Time, drv Driver) {
	m := drv.Source()
	log := e.logger.With("method", string(m))
	e.stats.SetState(string(m))
	log.Info("method starting")

	for page := 1; page <= e.cfg.MaxPages; page++ {
		if e.shouldStop(ctx, deadline) || e.quota.full() {
			return
		}
		if err := e.pacer.Wait(ctx); err != nil {
			return
		}

		listings, err := drv.FetchPage(ctx, e.target, page)
		switch {
		case errors.Is(err, fetcher.ErrBlocked):
			e.stats.Blocked()
			log.Warn("blocked, abandoning method", "page", page, "error", err)
			return
		case err != nil:
			e.stats.Error()
			log.Warn("page failed, abandoning method", "page", page, "error", err)
			return
		case len(listings) == 0:
			log.Info("no listings, falling through", "page", page)
			return
		}

		dispatched := e.dispatch(ctx, m, listings)
		log.Info("page dispatched", "page", page, "listings", len(listings), "new", dispatched)
	}
}

// dispatch claims a quota slot and the listing identity, then hands the
// listing to the pool. Quota before identity: once the quota is full the
// remaining candidates stay unclaimed for a later shortfall.
func (e *Engine) dispatch(ctx context.Context, m types.Method, listings []types.ListingSummary) int {
	dispatched := 0
	for _, s := range listings {
		id := s.Identity()
		if id == "" {
			continue
		}
		if !e.quota.claim() {
			break
		}
		if !e.claims.Claim(id) {
			e.quota.release()
			continue
		}

		summary := s
		e.wg.Add(1)
		if err := e.pool.Submit(ctx, func(taskCtx context.Context) {
			defer e.wg.Done()
			e.process(taskCtx, m, summary)
		}); err != nil {
			e.wg.Done()
			e.quota.release()
			e.logger.Warn("dispatch rejected", "id", id, "error", err)
			return dispatched
		}
		dispatched++
	}
	return dispatched
}

// process runs one listing end to end: optional detail fetch, reconcile,
// push. A failed detail fetch skips the listing and frees its quota slot.
func (e *Engine) process(ctx context.Context, m types.Method, s types.ListingSummary) {
	if ctx.Err() != nil {
		e.quota.release()
		return
	}

	var detail types.DetailRecord
	if e.cfg.CollectDetails && e.details != nil && s.URL != "" {
		d, err := e.fetchDetail(ctx, s)
		if err != nil {
			e.quota.release()
			e.stats.DetailSkipped()
			if errors.Is(err, fetcher.ErrBlocked) {
				e.stats.Blocked()
			} else {
				e.stats.Error()
			}
			e.logger.Warn("listing skipped", "url", s.URL, "error", err)
			return
		}
		detail = d
	}

	rec := reconcile.Merge(s, detail, m, e.origin, time.Now())
	if missing := reconcile.MissingNumerics(rec); len(missing) > 0 {
		e.logger.Debug("record saved with nulls",
			"propertyId", rec.PropertyID,
			"fields", strings.Join(missing, ","),
		)
	}

	if err := e.dataset.Push(ctx, rec); err != nil {
		e.quota.release()
		e.stats.Error()
		e.logger.Error("push failed", "propertyId", rec.PropertyID, "error", err)
		return
	}
	e.stats.RecordSaved(m)
}

func (e *Engine) fetchDetail(ctx context.Context, s types.ListingSummary) (types.DetailRecord, error) {
	detailURL := reconcile.ResolveURL(e.origin, s.URL)
	if e.robots != nil && !e.robots.Allowed(ctx, detailURL) {
		return types.DetailRecord{}, &fetcher.BlockedError{Signal: "robots.txt disallow"}
	}
	if err := e.pacer.Wait(ctx); err != nil {
		return types.DetailRecord{}, err
	}

	var rec types.DetailRecord
	err := e.retry.Do(ctx, "detail fetch", func(ctx context.Context) error {
		pg, err := e.details.Fetch(ctx, fetcher.Request{URL: detailURL})
		if err != nil {
			return err
		}
		if err := fetcher.Check(pg); err != nil {
			return err
		}
		rec = extract.Detail(pg.Body)
		return nil
	})
	return rec, err
}

func (e *Engine) shouldStop(ctx context.Context, deadline time.Time) bool {
	if ctx.Err() != nil {
		return true
	}
	if !deadline.IsZero() && time.Now().After(deadline) {
		e.logger.Warn("wall clock budget exhausted")
		return true
	}
	return false
}

func queueSize(concurrency int) int {
	n := concurrency * 2
	if n < 4 {
		n = 4
	}
	return n
}

func originOf(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func methodNames(methods []types.Method) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = string(m)
	}
	return out
}
