package scrape

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"

	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/config"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/fetcher"
	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.StartURL = "https://www.example.com/city/29470/IL/Chicago"
	cfg.ResultsWanted = 5
	cfg.MaxPages = 3
	cfg.CollectDetails = false
	cfg.DelayMin = config.Duration{}
	cfg.DelayMax = config.Duration{}
	cfg.RateLimit = config.RateLimitConfig{}
	cfg.MaxRuntime = config.Duration{}
	return cfg
}

func testTarget() *types.RegionTarget {
	return &types.RegionTarget{
		ID:       "29470",
		Type:     types.RegionCity,
		Market:   "chicago",
		StartURL: "https://www.example.com/city/29470/IL/Chicago",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func summaries(n, offset int) []types.ListingSummary {
	out := make([]types.ListingSummary, n)
	for i := range out {
		id := strconv.Itoa(offset + i)
		out[i] = types.ListingSummary{
			PropertyID: id,
			URL:        "/IL/Chicago/x/home/" + id,
			Price:      "500000",
		}
	}
	return out
}

type fakeDriver struct {
	method types.Method
	pages  [][]types.ListingSummary
	err    error

	mu       sync.Mutex
	calls    int
	lastPage int
}

func (d *fakeDriver) Source() types.Method { return d.method }

func (d *fakeDriver) FetchPage(_ context.Context, _ *types.RegionTarget, page int) ([]types.ListingSummary, error) {
	d.mu.Lock()
	d.calls++
	if page > d.lastPage {
		d.lastPage = page
	}
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if page > len(d.pages) {
		return nil, nil
	}
	return d.pages[page-1], nil
}

func (d *fakeDriver) stats() (calls, lastPage int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls, d.lastPage
}

type memDataset struct {
	mu   sync.Mutex
	recs []types.PropertyRecord
	fail error
}

func (m *memDataset) Push(_ context.Context, rec types.PropertyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memDataset) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

type memKV struct {
	mu   sync.Mutex
	vals map[string]any
}

func (m *memKV) Set(_ context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vals == nil {
		m.vals = make(map[string]any)
	}
	m.vals[key] = value
	return nil
}

func (m *memKV) get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	return v, ok
}

type fakeFetcher struct {
	fn func(req fetcher.Request) (*fetcher.Page, error)
}

func (f *fakeFetcher) Fetch(_ context.Context, req fetcher.Request) (*fetcher.Page, error) {
	return f.fn(req)
}

func TestRunStopsAtQuota(t *testing.T) {
	api := &fakeDriver{method: types.MethodAPI, pages: [][]types.ListingSummary{
		summaries(10, 0),
		summaries(10, 100),
	}}
	ds := &memDataset{}
	kv := &memKV{}
	eng := NewEngine(testConfig(), testTarget(), Deps{
		Drivers: []Driver{api},
		Dataset: ds,
		KV:      kv,
		Logger:  quietLogger(),
	})

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := ds.count(); got != 5 {
		t.Errorf("saved %d records, want exactly 5", got)
	}
	if _, last := api.stats(); last != 1 {
		t.Errorf("highest page requested = %d, want page 2 never fetched", last)
	}

	raw, ok := kv.get("SUMMARY")
	if !ok {
		t.Fatal("run summary not persisted")
	}
	summary, ok := raw.(types.RunSummary)
	if !ok {
		t.Fatalf("summary type = %T", raw)
	}
	if summary.PropertiesSaved != 5 {
		t.Errorf("summary saved = %d", summary.PropertiesSaved)
	}
	if len(summary.MethodsUsed) != 1 || summary.MethodsUsed[0] != types.MethodAPI {
		t.Errorf("methodsUsed = %v, want [json-api]", summary.MethodsUsed)
	}
}

func TestRunFallsThroughOnEmptyAPI(t *testing.T) {
	api := &fakeDriver{method: types.MethodAPI}
	html := &fakeDriver{method: types.MethodHTML, pages: [][]types.ListingSummary{
		summaries(3, 0),
	}}
	ds := &memDataset{}
	kv := &memKV{}
	eng := NewEngine(testConfig(), testTarget(), Deps{
		Drivers: []Driver{api, html},
		Dataset: ds,
		KV:      kv,
		Logger:  quietLogger(),
	})

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls, _ := api.stats(); calls != 1 {
		t.Errorf("api calls = %d, want one empty page then fallthrough", calls)
	}
	if got := ds.count(); got != 3 {
		t.Errorf("saved %d records, want 3", got)
	}

	raw, _ := kv.get("SUMMARY")
	summary := raw.(types.RunSummary)
	if len(summary.MethodsUsed) != 1 || summary.MethodsUsed[0] != types.MethodHTML {
		t.Errorf("methodsUsed = %v, want only the yielding method", summary.MethodsUsed)
	}
}

func TestRunAbandonsBlockedMethod(t *testing.T) {
	api := &fakeDriver{method: types.MethodAPI, err: &fetcher.BlockedError{StatusCode: 403}}
	html := &fakeDriver{method: types.MethodHTML, pages: [][]types.ListingSummary{
		summaries(2, 0),
	}}
	ds := &memDataset{}
	eng := NewEngine(testConfig(), testTarget(), Deps{
		Drivers: []Driver{api, html},
		Dataset: ds,
		KV:      &memKV{},
		Logger:  quietLogger(),
	})

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls, _ := api.stats(); calls != 1 {
		t.Errorf("api calls = %d, want no retry of a blocked method", calls)
	}
	if got := ds.count(); got != 2 {
		t.Errorf("saved %d records, want 2 from the fallback", got)
	}
	if snap := eng.Stats().Snapshot(); snap.Blocked != 1 {
		t.Errorf("blocked count = %d", snap.Blocked)
	}
}

func TestRunErrsWhenNothingSaved(t *testing.T) {
	api := &fakeDriver{method: types.MethodAPI}
	html := &fakeDriver{method: types.MethodHTML}
	kv := &memKV{}
	eng := NewEngine(testConfig(), testTarget(), Deps{
		Drivers: []Driver{api, html},
		Dataset: &memDataset{},
		KV:      kv,
		Logger:  quietLogger(),
	})

	err := eng.Run(context.Background())
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
	if _, ok := kv.get("SUMMARY"); ok {
		t.Error("summary persisted for a failed run")
	}
}

func TestRunDeduplicatesAcrossPages(t *testing.T) {
	a := summaries(2, 0)
	b := []types.ListingSummary{a[1], summaries(1, 50)[0]}
	api := &fakeDriver{method: types.MethodAPI, pages: [][]types.ListingSummary{a, b}}
	ds := &memDataset{}
	cfg := testConfig()
	cfg.ResultsWanted = 10
	cfg.MaxPages = 2
	eng := NewEngine(cfg, testTarget(), Deps{
		Drivers: []Driver{api},
		Dataset: ds,
		KV:      &memKV{},
		Logger:  quietLogger(),
	})

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := ds.count(); got != 3 {
		t.Errorf("saved %d records, want 3 distinct listings", got)
	}
}

func TestRunSkipsLaterDriversOnceFull(t *testing.T) {
	api := &fakeDriver{method: types.MethodAPI, pages: [][]types.ListingSummary{
		summaries(10, 0),
	}}
	html := &fakeDriver{method: types.MethodHTML, pages: [][]types.ListingSummary{
		summaries(10, 100),
	}}
	eng := NewEngine(testConfig(), testTarget(), Deps{
		Drivers: []Driver{api, html},
		Dataset: &memDataset{},
		KV:      &memKV{},
		Logger:  quietLogger(),
	})

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls, _ := html.stats(); calls != 0 {
		t.Errorf("html calls = %d, want fallback never reached", calls)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api := &fakeDriver{method: types.MethodAPI, pages: [][]types.ListingSummary{summaries(3, 0)}}
	eng := NewEngine(testConfig(), testTarget(), Deps{
		Drivers: []Driver{api},
		Dataset: &memDataset{},
		KV:      &memKV{},
		Logger:  quietLogger(),
	})

	if err := eng.Run(ctx); !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults from an aborted run", err)
	}
	if calls, _ := api.stats(); calls != 0 {
		t.Errorf("api calls = %d, want none after cancellation", calls)
	}
}

func TestRunCollectsDetails(t *testing.T) {
	detailBody := `<html><body>
<div data-rf-test-id="abp-price"><div class="statsValue">$610,000</div></div>
<div class="remarks">Corner unit with parking.</div>
</body></html>`
	details := &fakeFetcher{fn: func(req fetcher.Request) (*fetcher.Page, error) {
		return &fetcher.Page{URL: req.URL, StatusCode: 200, Body: []byte(detailBody)}, nil
	}}

	api := &fakeDriver{method: types.MethodAPI, pages: [][]types.ListingSummary{
		summaries(2, 0),
	}}
	ds := &memDataset{}
	cfg := testConfig()
	cfg.CollectDetails = true
	cfg.ResultsWanted = 2
	eng := NewEngine(cfg, testTarget(), Deps{
		Drivers: []Driver{api},
		Details: details,
		Dataset: ds,
		KV:      &memKV{},
		Logger:  quietLogger(),
	})

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := ds.count(); got != 2 {
		t.Fatalf("saved %d records, want 2", got)
	}

	rec := ds.recs[0]
	if rec.Description != "Corner unit with parking." {
		t.Errorf("Description = %q, want detail page remarks", rec.Description)
	}
	if rec.Price == nil || *rec.Price != "$610,000" {
		t.Errorf("Price = %v, want detail price over summary price", rec.Price)
	}
	if rec.URL != "https://www.example.com"+"/IL/Chicago/x/home/"+rec.PropertyID {
		t.Errorf("URL = %q, want resolved against the site origin", rec.URL)
	}
	if rec.Source != types.MethodAPI {
		t.Errorf("Source = %q", rec.Source)
	}
}

func TestProcessReleasesQuotaOnDetailFailure(t *testing.T) {
	blocked := &fakeFetcher{fn: func(req fetcher.Request) (*fetcher.Page, error) {
		return &fetcher.Page{URL: req.URL, StatusCode: 403}, nil
	}}
	cfg := testConfig()
	cfg.CollectDetails = true
	cfg.ResultsWanted = 1
	ds := &memDataset{}
	eng := NewEngine(cfg, testTarget(), Deps{
		Drivers: []Driver{},
		Details: blocked,
		Dataset: ds,
		Logger:  quietLogger(),
	})

	if !eng.quota.claim() {
		t.Fatal("claim failed on fresh quota")
	}
	eng.process(context.Background(), types.MethodAPI, types.ListingSummary{
		PropertyID: "9",
		URL:        "/IL/Chicago/x/home/9",
	})

	if got := ds.count(); got != 0 {
		t.Errorf("saved %d records, want skipped listing not pushed", got)
	}
	if !eng.quota.claim() {
		t.Error("quota slot not released after detail failure")
	}
	snap := eng.Stats().Snapshot()
	if snap.DetailsSkipped != 1 || snap.Blocked != 1 {
		t.Errorf("skipped/blocked = %d/%d, want 1/1", snap.DetailsSkipped, snap.Blocked)
	}
}

func TestClaimSetConcurrent(t *testing.T) {
	set := NewClaimSet()
	var wins int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if set.Claim("same-id") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("claim wins = %d, want exactly 1", wins)
	}
	if set.Len() != 1 {
		t.Errorf("len = %d", set.Len())
	}
	if set.Claim("") {
		t.Error("empty id claimed")
	}
}

func TestSearchPageURL(t *testing.T) {
	tests := []struct {
		start string
		page  int
		want  string
	}{
		{"https://x.com/city/29470/IL/Chicago", 1, "https://x.com/city/29470/IL/Chicago"},
		{"https://x.com/city/29470/IL/Chicago", 2, "https://x.com/city/29470/IL/Chicago/page-2"},
		{"https://x.com/city/29470/IL/Chicago/", 3, "https://x.com/city/29470/IL/Chicago/page-3"},
	}
	for _, tt := range tests {
		if got := searchPageURL(tt.start, tt.page); got != tt.want {
			t.Errorf("searchPageURL(%q, %d) = %q, want %q", tt.start, tt.page, got, tt.want)
		}
	}
}
