package config

import (
	"strings"
	"testing"
	"time"
)

const minimalYAML = `start_url: "https://www.example.com/city/29470/IL/Chicago"`

func TestLoadFromReaderDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("load minimal config: %v", err)
	}

	if cfg.StartURL != "https://www.example.com/city/29470/IL/Chicago" {
		t.Fatalf("unexpected start url %q", cfg.StartURL)
	}
	if cfg.ResultsWanted != 50 {
		t.Fatalf("expected default results_wanted 50, got %d", cfg.ResultsWanted)
	}
	if cfg.MaxPages != 3 || cfg.PageSize != 50 {
		t.Fatalf("unexpected paging defaults: pages=%d size=%d", cfg.MaxPages, cfg.PageSize)
	}
	if !cfg.Methods.API || !cfg.Methods.HTML || cfg.Methods.Browser {
		t.Fatalf("unexpected method defaults: %+v", cfg.Methods)
	}
	if cfg.RequestTimeout.Duration != 15*time.Second {
		t.Fatalf("expected 15s request timeout, got %s", cfg.RequestTimeout)
	}
	if !cfg.CollectDetails {
		t.Fatal("expected collect_details on by default")
	}
	if cfg.Robots.Respect {
		t.Fatal("expected robots gate off by default")
	}
	if cfg.Output.Dir != "out" || cfg.Output.Dataset != "properties.jsonl" {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}
	if !cfg.RateLimit.Enabled() {
		t.Fatal("expected default rate limit to be enabled")
	}
}

func TestDurationForms(t *testing.T) {
	yaml := minimalYAML + `
request_timeout: 20s
max_runtime: 300
delay_max: 1.5
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.RequestTimeout.Duration != 20*time.Second {
		t.Fatalf("string duration: expected 20s, got %s", cfg.RequestTimeout)
	}
	if cfg.MaxRuntime.Duration != 5*time.Minute {
		t.Fatalf("bare seconds: expected 5m, got %s", cfg.MaxRuntime)
	}
	if cfg.DelayMax.Duration != 1500*time.Millisecond {
		t.Fatalf("fractional seconds: expected 1.5s, got %s", cfg.DelayMax)
	}
}

func TestNormaliseClamps(t *testing.T) {
	yaml := minimalYAML + `
results_wanted: 0
max_pages: 0
page_size: 999
max_concurrency: 99
delay_min: 2s
delay_max: 1s
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.ResultsWanted != 1 {
		t.Fatalf("expected results_wanted clamped to 1, got %d", cfg.ResultsWanted)
	}
	if cfg.MaxPages != 1 {
		t.Fatalf("expected max_pages clamped to 1, got %d", cfg.MaxPages)
	}
	if cfg.PageSize != 350 {
		t.Fatalf("expected page_size capped at 350, got %d", cfg.PageSize)
	}
	if cfg.MaxConcurrency != 10 {
		t.Fatalf("expected max_concurrency capped at 10, got %d", cfg.MaxConcurrency)
	}
	if cfg.DelayMax.Duration != cfg.DelayMin.Duration {
		t.Fatalf("expected delay_max raised to delay_min, got min=%s max=%s", cfg.DelayMin, cfg.DelayMax)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no start url or region", `results_wanted: 5`},
		{"relative start url", `start_url: "/city/29470/IL/Chicago"`},
		{"non http scheme", `start_url: "ftp://example.com/city/1/X/Y"`},
		{"region id without type", minimalYAML + "\nregion:\n  id: \"29470\""},
		{"unknown region type", minimalYAML + "\nregion:\n  id: \"29470\"\n  type: planet"},
		{"all methods disabled", minimalYAML + "\nmethods:\n  api: false\n  html: false\n  browser: false"},
		{"zero request timeout", minimalYAML + "\nrequest_timeout: 0"},
		{"zero max runtime", minimalYAML + "\nmax_runtime: 0"},
		{"zero body cap", minimalYAML + "\nmax_body_bytes: 0"},
		{"blank user agent", minimalYAML + "\nuser_agent: \"  \""},
		{"blank output dir", minimalYAML + "\noutput:\n  dir: \"\""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFromReader(strings.NewReader(tc.yaml)); err == nil {
				t.Fatalf("expected %s to be rejected", tc.name)
			}
		})
	}
}

func TestUnknownKeysRejected(t *testing.T) {
	yaml := minimalYAML + "\nresutls_wanted: 5"
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected a misspelled key to be rejected")
	}
}

func TestRegionTypeNormalised(t *testing.T) {
	yaml := `region:
  id: "12203"
  type: Zipcode
methods:
  api: true
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Region.Type != "zipcode" {
		t.Fatalf("expected lowercased region type, got %q", cfg.Region.Type)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SCRAPER_START_URL", "https://www.example.com/zipcode/60614")
	t.Setenv("SCRAPER_PROXY_URL", "http://proxy.local:8080")
	t.Setenv("POSTGRES_DSN", "postgres://scraper@localhost/listings")

	cfg := Default()
	cfg.StartURL = "https://www.example.com/city/29470/IL/Chicago"
	cfg.ApplyEnv()

	if cfg.StartURL != "https://www.example.com/zipcode/60614" {
		t.Fatalf("expected env start url, got %q", cfg.StartURL)
	}
	if cfg.Proxy.URL != "http://proxy.local:8080" {
		t.Fatalf("expected env proxy url, got %q", cfg.Proxy.URL)
	}
	if cfg.Output.PostgresDSN != "postgres://scraper@localhost/listings" {
		t.Fatalf("expected env postgres dsn, got %q", cfg.Output.PostgresDSN)
	}
}

func TestProxyPoolPrecedence(t *testing.T) {
	cfg := Default()
	cfg.Proxy.URL = "http://single.local:1"
	cfg.Proxy.URLs = []string{" http://a.local:1 ", "http://b.local:1", "http://a.local:1", ""}
	cfg.normalise()

	pool := cfg.ProxyPool()
	if len(pool) != 2 || pool[0] != "http://a.local:1" || pool[1] != "http://b.local:1" {
		t.Fatalf("expected deduplicated rotation list, got %v", pool)
	}

	cfg.Proxy.URLs = nil
	if pool := cfg.ProxyPool(); len(pool) != 1 || pool[0] != "http://single.local:1" {
		t.Fatalf("expected single proxy fallback, got %v", pool)
	}

	cfg.Proxy.URL = ""
	if pool := cfg.ProxyPool(); pool != nil {
		t.Fatalf("expected empty pool, got %v", pool)
	}
}

func TestRateLimitEnabled(t *testing.T) {
	rl := RateLimitConfig{Requests: 2, Window: DurationFrom(time.Second)}
	if !rl.Enabled() {
		t.Fatal("expected configured limiter to be enabled")
	}
	if (RateLimitConfig{Requests: 0, Window: DurationFrom(time.Second)}).Enabled() {
		t.Fatal("expected zero requests to disable the limiter")
	}
	if (RateLimitConfig{Requests: 2}).Enabled() {
		t.Fatal("expected zero window to disable the limiter")
	}
}
