package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// Config captures the full configuration for one scrape run.
type Config struct {
	StartURL       string            `yaml:"start_url"`
	Region         RegionConfig      `yaml:"region"`
	ResultsWanted  int               `yaml:"results_wanted"`
	MaxPages       int               `yaml:"max_pages"`
	PageSize       int               `yaml:"page_size"`
	CollectDetails bool              `yaml:"collect_details"`
	MaxConcurrency int               `yaml:"max_concurrency"`
	Methods        MethodsConfig     `yaml:"methods"`
	MaxRetries     int               `yaml:"max_retries"`
	RequestTimeout Duration          `yaml:"request_timeout"`
	DelayMin       Duration          `yaml:"delay_min"`
	DelayMax       Duration          `yaml:"delay_max"`
	MaxRuntime     Duration          `yaml:"max_runtime"`
	RateLimit      RateLimitConfig   `yaml:"rate_limit"`
	UserAgent      string            `yaml:"user_agent"`
	Headers        map[string]string `yaml:"headers"`
	MaxBodyBytes   int64             `yaml:"max_body_bytes"`
	Proxy          ProxyConfig       `yaml:"proxy"`
	Robots         RobotsConfig      `yaml:"robots"`
	Output         OutputConfig      `yaml:"output"`
	StatusAddr     string            `yaml:"status_addr"`
	Logging        LoggingConfig     `yaml:"logging"`
}

// RegionConfig overrides region resolution from the start URL.
type RegionConfig struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
}

// MethodsConfig enables or disables individual acquisition methods.
type MethodsConfig struct {
	API     bool `yaml:"api"`
	HTML    bool `yaml:"html"`
	Browser bool `yaml:"browser"`
}

// RateLimitConfig applies a token bucket across all outbound requests.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// Enabled reports whether the token bucket is active.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && !r.Window.IsZero()
}

// ProxyConfig selects outbound proxies. URLs takes precedence over URL and
// is sampled per request without affinity.
type ProxyConfig struct {
	URL  string   `yaml:"url"`
	URLs []string `yaml:"urls"`
}

// RobotsConfig configures the optional robots.txt gate. Off by default;
// the fallback chain exists to work around blocking, not to invite it.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// OutputConfig selects the dataset sinks and the summary directory.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Dataset     string `yaml:"dataset"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		ResultsWanted:  50,
		MaxPages:       3,
		PageSize:       50,
		CollectDetails: true,
		MaxConcurrency: 3,
		Methods: MethodsConfig{
			API:     true,
			HTML:    true,
			Browser: false,
		},
		MaxRetries:     2,
		RequestTimeout: DurationFrom(15 * time.Second),
		DelayMin:       DurationFrom(800 * time.Millisecond),
		DelayMax:       DurationFrom(2500 * time.Millisecond),
		MaxRuntime:     DurationFrom(8 * time.Minute),
		RateLimit: RateLimitConfig{
			Requests: 2,
			Window:   DurationFrom(time.Second),
		},
		UserAgent:    defaultUserAgent,
		Headers:      map[string]string{},
		MaxBodyBytes: 10 * 1024 * 1024,
		Robots: RobotsConfig{
			Respect:  false,
			CacheTTL: DurationFrom(6 * time.Hour),
		},
		Output: OutputConfig{
			Dir:     "out",
			Dataset: "properties.jsonl",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: false,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
// Environment overrides are applied between decoding and validation.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()

	cfg := Default()
	if err := decodeYAML(fh, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	cfg.normalise()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto the configuration. Secrets
// and per-deploy values live in the environment, not the YAML file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SCRAPER_START_URL"); v != "" {
		c.StartURL = v
	}
	if v := os.Getenv("SCRAPER_PROXY_URL"); v != "" {
		c.Proxy.URL = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Output.PostgresDSN = v
	}
}

// Validate enforces required invariants for a run configuration.
func (c Config) Validate() error {
	if c.StartURL == "" && c.Region.ID == "" {
		return errors.New("start_url or a region.id override must be set")
	}
	if c.StartURL != "" {
		u, err := url.Parse(c.StartURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("start_url %q is not an absolute http(s) url", c.StartURL)
		}
	}
	if c.Region.ID != "" && c.Region.Type == "" {
		return errors.New("region.type must accompany region.id")
	}
	if c.Region.Type != "" {
		if _, err := types.ParseRegionType(c.Region.Type); err != nil {
			return fmt.Errorf("region.type: %w", err)
		}
	}
	if !c.Methods.API && !c.Methods.HTML && !c.Methods.Browser {
		return errors.New("at least one acquisition method must be enabled")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0 (got %d)", c.MaxRetries)
	}
	if c.RequestTimeout.Duration <= 0 {
		return errors.New("request_timeout must be > 0")
	}
	if c.MaxRuntime.Duration <= 0 {
		return errors.New("max_runtime must be > 0")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be > 0 (got %d)", c.MaxBodyBytes)
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return errors.New("user_agent must be set")
	}
	if rl := c.RateLimit; rl.Requests < 0 {
		return fmt.Errorf("rate_limit.requests must be >= 0 (got %d)", rl.Requests)
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.New("output.dir must be set")
	}
	if strings.TrimSpace(c.Output.Dataset) == "" {
		return errors.New("output.dataset must be set")
	}
	for _, p := range c.proxyPool() {
		if _, err := url.Parse(p); err != nil {
			return fmt.Errorf("proxy url %q: %w", p, err)
		}
	}
	return nil
}

func (c *Config) normalise() {
	c.StartURL = strings.TrimSpace(c.StartURL)
	c.Region.ID = strings.TrimSpace(c.Region.ID)
	c.Region.Type = strings.ToLower(strings.TrimSpace(c.Region.Type))
	c.UserAgent = strings.TrimSpace(c.UserAgent)
	c.StatusAddr = strings.TrimSpace(c.StatusAddr)
	c.Output.Dir = strings.TrimSpace(c.Output.Dir)
	c.Output.Dataset = strings.TrimSpace(c.Output.Dataset)

	if c.ResultsWanted < 1 {
		c.ResultsWanted = 1
	}
	if c.MaxPages < 1 {
		c.MaxPages = 1
	}
	if c.PageSize < 1 {
		c.PageSize = 1
	}
	if c.PageSize > 350 {
		c.PageSize = 350
	}
	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = 1
	}
	if c.MaxConcurrency > 10 {
		c.MaxConcurrency = 10
	}
	if c.DelayMin.Duration < 0 {
		c.DelayMin = Duration{}
	}
	if c.DelayMax.Duration < c.DelayMin.Duration {
		c.DelayMax = c.DelayMin
	}
	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
	if strings.TrimSpace(c.Robots.UserAgent) == "" {
		c.Robots.UserAgent = c.UserAgent
	}
	c.Proxy.URL = strings.TrimSpace(c.Proxy.URL)
	c.Proxy.URLs = cleanList(c.Proxy.URLs)
}

// proxyPool returns the effective proxy rotation list.
func (c Config) proxyPool() []string {
	if len(c.Proxy.URLs) > 0 {
		return c.Proxy.URLs
	}
	if c.Proxy.URL != "" {
		return []string{c.Proxy.URL}
	}
	return nil
}

// ProxyPool returns every configured proxy URL, rotation list first.
func (c Config) ProxyPool() []string {
	return c.proxyPool()
}

// cleanList trims entries, drops empties, and de-duplicates preserving order.
func cleanList(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	return cleaned
}
