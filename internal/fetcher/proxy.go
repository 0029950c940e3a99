package fetcher

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// ProxyProvider hands out a proxy URL per request. Implementations give no
// affinity guarantee; successive calls may return different URLs.
type ProxyProvider interface {
	ProxyURL(ctx context.Context) (string, error)
}

// StaticProxy always returns the same URL.
type StaticProxy string

func (p StaticProxy) ProxyURL(context.Context) (string, error) {
	return string(p), nil
}

// RotatingProxy samples uniformly from a pool on every call.
type RotatingProxy struct {
	mu   sync.Mutex
	pool []string
	rng  *rand.Rand
}

// NewRotatingProxy copies the pool so later config mutation cannot race.
func NewRotatingProxy(pool []string) *RotatingProxy {
	return &RotatingProxy{
		pool: append([]string(nil), pool...),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *RotatingProxy) ProxyURL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pool) == 0 {
		return "", nil
	}
	return p.pool[p.rng.Intn(len(p.pool))], nil
}

// ProviderFromPool builds the provider shape matching the configured pool:
// nil for none, static for one, rotating otherwise.
func ProviderFromPool(pool []string) ProxyProvider {
	switch len(pool) {
	case 0:
		return nil
	case 1:
		return StaticProxy(pool[0])
	default:
		return NewRotatingProxy(pool)
	}
}
