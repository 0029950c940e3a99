package scrape

import (
	"context"
	"log/slog"

	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/extract"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/fetcher"
	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// HTMLDriver fetches search result pages over plain HTTP and parses the
// markup. First fallback when the API yields nothing.
type HTMLDriver struct {
	fetcher fetcher.Fetcher
	retry   fetcher.Retryer
	stats   *Stats
	logger  *slog.Logger
}

// NewHTMLDriver builds the driver.
func NewHTMLDriver(f fetcher.Fetcher, retry fetcher.Retryer, stats *Stats, logger *slog.Logger) *HTMLDriver {
	return &HTMLDriver{fetcher: f, retry: retry, stats: stats, logger: logger}
}

func (d *HTMLDriver) Source() types.Method { return types.MethodHTML }

// FetchPage fetches one search page and runs the listing cascade over it.
func (d *HTMLDriver) FetchPage(ctx context.Context, target *types.RegionTarget, page int) ([]types.ListingSummary, error) {
	pageURL := searchPageURL(target.StartURL, page)

	var listings []types.ListingSummary
	err := d.retry.Do(ctx, "html search", func(ctx context.Context) error {
		pg, err := d.fetcher.Fetch(ctx, fetcher.Request{URL: pageURL})
		if err != nil {
			return err
		}
		if err := fetcher.Check(pg); err != nil {
			return err
		}
		listings = extract.Listings(pg.Body)
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.stats.PageFetched(d.Source())
	d.logger.Debug("html page fetched", "page", page, "url", pageURL, "listings", len(listings))
	return listings, nil
}
