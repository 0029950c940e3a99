package scrape

import "sync"

// ClaimSet tracks listing identities already taken this run. Claim is
// first-writer-wins, so a listing appearing on several pages or through
// several methods is dispatched exactly once.
type ClaimSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewClaimSet returns an empty set.
func NewClaimSet() *ClaimSet {
	return &ClaimSet{seen: make(map[string]struct{})}
}

// Claim reports whether the caller won the identity. Exactly one caller
// per id ever sees true.
func (c *ClaimSet) Claim(id string) bool {
	if id == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[id]; ok {
		return false
	}
	c.seen[id] = struct{}{}
	return true
}

// Len returns how many identities have been claimed.
func (c *ClaimSet) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// quota bounds how many listings may be dispatched. Slots are claimed
// before a detail task starts and released if the task fails, so a failed
// listing does not eat into resultsWanted.
type quota struct {
	mu      sync.Mutex
	claimed int
	limit   int
}

func newQuota(limit int) *quota {
	return &quota{limit: limit}
}

func (q *quota) claim() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.claimed >= q.limit {
		return false
	}
	q.claimed++
	return true
}

func (q *quota) release() {
	q.mu.Lock()
	if q.claimed > 0 {
		q.claimed--
	}
	q.mu.Unlock()
}

func (q *quota) full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.claimed >= q.limit
}
