package scrape

import (
	"context"
	"errors"
	"sync"
)

type task func(ctx context.Context)

// WorkerPool runs detail tasks with bounded concurrency and a bounded
// queue. Submit blocks while the queue is full, which paces the page loop
// against slow detail fetches instead of piling up work.
type WorkerPool struct {
	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan task
	wg     sync.WaitGroup
}

// NewWorkerPool starts the workers immediately.
func NewWorkerPool(parent context.Context, concurrency, queueSize int) (*WorkerPool, error) {
	if concurrency <= 0 || queueSize <= 0 {
		return nil, errors.New("worker pool requires positive concurrency and queue size")
	}
	ctx, cancel := context.WithCancel(parent)
	pool := &WorkerPool{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(chan task, queueSize),
	}
	for i := 0; i < concurrency; i++ {
		pool.wg.Add(1)
		go pool.work()
	}
	return pool, nil
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case fn, ok := <-p.tasks:
			if !ok {
				return
			}
			fn(p.ctx)
		}
	}
}

// Submit schedules a task, rejecting it if either context ends first.
func (p *WorkerPool) Submit(ctx context.Context, fn task) error {
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- fn:
		return nil
	}
}

// Close stops the workers and waits for them to exit.
func (p *WorkerPool) Close() {
	p.cancel()
	close(p.tasks)
	p.wg.Wait()
}
