package scrape

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/config"
)

// Pacer spaces successive network actions: a randomised human-ish delay
// plus an optional token bucket over the whole run.
type Pacer struct {
	min, max time.Duration
	limiter  *rate.Limiter

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPacer builds a pacer from the run delays and rate limit settings. A
// zero rate limit disables the token bucket; min/max of zero disable the
// jitter sleep.
func NewPacer(min, max time.Duration, rateCfg config.RateLimitConfig) *Pacer {
	if max < min {
		max = min
	}
	p := &Pacer{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if rateCfg.Enabled() {
		interval := rateCfg.Window.Duration / time.Duration(rateCfg.Requests)
		if interval <= 0 {
			interval = time.Millisecond
		}
		p.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return p
}

// Wait blocks for the pacing delay, honouring cancellation.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	if sleep := p.delay(); sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pacer) delay() time.Duration {
	if p.max <= 0 {
		return 0
	}
	if p.max == p.min {
		return p.min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.min + time.Duration(p.rng.Int63n(int64(p.max-p.min)))
}
