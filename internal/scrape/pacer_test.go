package scrape

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/config"
)

func TestPacerWaitDelays(t *testing.T) {
	p := NewPacer(10*time.Millisecond, 10*time.Millisecond, config.RateLimitConfig{})
	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("elapsed %v, want at least the configured delay", elapsed)
	}
}

func TestPacerWaitJitterBounds(t *testing.T) {
	p := NewPacer(5*time.Millisecond, 20*time.Millisecond, config.RateLimitConfig{})
	for i := 0; i < 10; i++ {
		d := p.delay()
		if d < 5*time.Millisecond || d >= 20*time.Millisecond {
			t.Fatalf("delay %v outside [5ms, 20ms)", d)
		}
	}
}

func TestPacerWaitCancelled(t *testing.T) {
	p := NewPacer(time.Minute, time.Minute, config.RateLimitConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Wait(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Wait returned nil after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}

func TestPacerZeroIsImmediate(t *testing.T) {
	p := NewPacer(0, 0, config.RateLimitConfig{})
	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("elapsed %v, want no pacing delay", elapsed)
	}
}

func TestWorkerPoolRunsAll(t *testing.T) {
	pool, err := NewWorkerPool(context.Background(), 2, 4)
	if err != nil {
		t.Fatalf("NewWorkerPool: %v", err)
	}

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		if err := pool.Submit(context.Background(), func(context.Context) {
			defer wg.Done()
			ran.Add(1)
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()
	pool.Close()

	if got := ran.Load(); got != 10 {
		t.Errorf("ran %d tasks, want 10", got)
	}
}

func TestWorkerPoolRejectsBadSizes(t *testing.T) {
	if _, err := NewWorkerPool(context.Background(), 0, 4); err == nil {
		t.Error("zero concurrency accepted")
	}
	if _, err := NewWorkerPool(context.Background(), 2, 0); err == nil {
		t.Error("zero queue size accepted")
	}
}

func TestWorkerPoolSubmitAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool, err := NewWorkerPool(ctx, 1, 1)
	if err != nil {
		t.Fatalf("NewWorkerPool: %v", err)
	}

	block := make(chan struct{})
	if err := pool.Submit(context.Background(), func(context.Context) { <-block }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := pool.Submit(context.Background(), func(context.Context) {}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Worker busy, queue full: a cancelled pool must reject instead of block.
	cancel()
	if err := pool.Submit(context.Background(), func(context.Context) {}); err == nil {
		t.Error("Submit succeeded on a cancelled pool")
	}
	close(block)
	pool.Close()
}
