package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/extract"
	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/fetcher"
	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

const gisPath = "/stingray/api/gis"

// APIDriver pulls listings from the site's internal search API. Cheapest
// method, tried first.
type APIDriver struct {
	fetcher  fetcher.Fetcher
	retry    fetcher.Retryer
	origin   string
	pageSize int
	stats    *Stats
	logger   *slog.Logger
}

// NewAPIDriver builds the driver. origin is the site root the API lives
// under, scheme and host only.
func NewAPIDriver(f fetcher.Fetcher, retry fetcher.Retryer, origin string, pageSize int, stats *Stats, logger *slog.Logger) *APIDriver {
	return &APIDriver{
		fetcher:  f,
		retry:    retry,
		origin:   origin,
		pageSize: pageSize,
		stats:    stats,
		logger:   logger,
	}
}

func (d *APIDriver) Source() types.Method { return types.MethodAPI }

// FetchPage queries one page of search results. A payload without homes is
// a normal end of results and comes back as an empty slice.
func (d *APIDriver) FetchPage(ctx context.Context, target *types.RegionTarget, page int) ([]types.ListingSummary, error) {
	searchURL, err := d.searchURL(target, page)
	if err != nil {
		return nil, err
	}

	var listings []types.ListingSummary
	err = d.retry.Do(ctx, "api search", func(ctx context.Context) error {
		d.stats.APICall()
		pg, err := d.fetcher.Fetch(ctx, fetcher.Request{
			URL:     searchURL,
			Headers: map[string]string{"Accept": "application/json"},
		})
		if err != nil {
			return err
		}
		if err := fetcher.Check(pg); err != nil {
			return err
		}
		listings = extract.ListingsFromAPI(pg.Body)
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.stats.PageFetched(d.Source())
	d.logger.Debug("api page fetched", "page", page, "listings", len(listings))
	return listings, nil
}

func (d *APIDriver) searchURL(target *types.RegionTarget, page int) (string, error) {
	code, ok := target.Code()
	if !ok {
		return "", fmt.Errorf("region type %q has no api code", target.Type)
	}
	q := url.Values{}
	q.Set("al", "1")
	q.Set("region_id", target.ID)
	q.Set("region_type", strconv.Itoa(code))
	if target.Market != "" {
		q.Set("market", target.Market)
	}
	q.Set("num_homes", strconv.Itoa(d.pageSize))
	q.Set("page_number", strconv.Itoa(page))
	q.Set("status", "9")
	q.Set("uipt", "1,2,3,4,5,6")
	q.Set("sf", "1,2,3,5,6,7")
	q.Set("v", "8")
	return d.origin + gisPath + "?" + q.Encode(), nil
}
