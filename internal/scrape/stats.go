package scrape

import (
	"sync"
	"time"

	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// Stats is the shared run counter set. The engine and its drivers write to
// it; the status endpoint and the final summary read snapshots.
type Stats struct {
	mu             sync.Mutex
	started        time.Time
	state          string
	pages          map[types.Method]int
	apiCalls       int
	errors         int
	blocked        int
	detailsSkipped int
	saved          int
	methodsUsed    []types.Method
}

// Snapshot is a point-in-time copy of the counters, shaped for JSON.
type Snapshot struct {
	State          string         `json:"state"`
	Saved          int            `json:"saved"`
	Pages          map[string]int `json:"pages"`
	APICalls       int            `json:"apiCalls"`
	Errors         int            `json:"errors"`
	Blocked        int            `json:"blocked"`
	DetailsSkipped int            `json:"detailsSkipped"`
	MethodsUsed    []types.Method `json:"methodsUsed"`
	UptimeSeconds  float64        `json:"uptimeSeconds"`
}

// NewStats starts the clock for a run.
func NewStats() *Stats {
	return &Stats{
		started: time.Now(),
		state:   "starting",
		pages:   make(map[types.Method]int),
	}
}

// SetState records the engine's current phase.
func (s *Stats) SetState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// PageFetched counts one successfully fetched search page for a method.
func (s *Stats) PageFetched(m types.Method) {
	s.mu.Lock()
	s.pages[m]++
	s.mu.Unlock()
}

// APICall counts one request against the search API, retries included.
func (s *Stats) APICall() {
	s.mu.Lock()
	s.apiCalls++
	s.mu.Unlock()
}

// Error counts one non-blocking failure.
func (s *Stats) Error() {
	s.mu.Lock()
	s.errors++
	s.mu.Unlock()
}

// Blocked counts one blocking classification.
func (s *Stats) Blocked() {
	s.mu.Lock()
	s.blocked++
	s.mu.Unlock()
}

// DetailSkipped counts a listing dropped because its detail fetch failed.
func (s *Stats) DetailSkipped() {
	s.mu.Lock()
	s.detailsSkipped++
	s.mu.Unlock()
}

// RecordSaved counts one persisted record and credits the method that
// yielded it. methodsUsed keeps first-yield order.
func (s *Stats) RecordSaved(m types.Method) {
	s.mu.Lock()
	s.saved++
	found := false
	for _, used := range s.methodsUsed {
		if used == m {
			found = true
			break
		}
	}
	if !found {
		s.methodsUsed = append(s.methodsUsed, m)
	}
	s.mu.Unlock()
}

// Saved returns the number of records persisted so far.
func (s *Stats) Saved() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// MethodsUsed returns the methods that yielded saved records, in first-yield
// order.
func (s *Stats) MethodsUsed() []types.Method {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Method, len(s.methodsUsed))
	copy(out, s.methodsUsed)
	return out
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages := make(map[string]int, len(s.pages))
	for m, n := range s.pages {
		pages[string(m)] = n
	}
	methods := make([]types.Method, len(s.methodsUsed))
	copy(methods, s.methodsUsed)
	return Snapshot{
		State:          s.state,
		Saved:          s.saved,
		Pages:          pages,
		APICalls:       s.apiCalls,
		Errors:         s.errors,
		Blocked:        s.blocked,
		DetailsSkipped: s.detailsSkipped,
		MethodsUsed:    methods,
		UptimeSeconds:  time.Since(s.started).Seconds(),
	}
}
