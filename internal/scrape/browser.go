package scrape

import (
	"context"
	"log/slog"

	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/extract"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/fetcher"
	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// BrowserDriver renders the search page in headless Chrome. Last resort,
// single page only: a render is expensive and the first page carries the
// freshest listings.
type BrowserDriver struct {
	renderer fetcher.Renderer
	stats    *Stats
	logger   *slog.Logger
}

// NewBrowserDriver builds the driver.
func NewBrowserDriver(r fetcher.Renderer, stats *Stats, logger *slog.Logger) *BrowserDriver {
	return &BrowserDriver{renderer: r, stats: stats, logger: logger}
}

func (d *BrowserDriver) Source() types.Method { return types.MethodBrowser }

// FetchPage renders the start URL and runs the listing cascade over the
// rendered markup. Pages past the first come back empty.
func (d *BrowserDriver) FetchPage(ctx context.Context, target *types.RegionTarget, page int) ([]types.ListingSummary, error) {
	if page > 1 {
		return nil, nil
	}
	pg, err := d.renderer.Render(ctx, fetcher.Request{URL: target.StartURL})
	if err != nil {
		return nil, err
	}
	if err := fetcher.Check(pg); err != nil {
		return nil, err
	}
	listings := extract.Listings(pg.Body)
	d.stats.PageFetched(d.Source())
	d.logger.Debug("rendered page fetched", "listings", len(listings))
	return listings, nil
}
