package scrape

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// Driver is one acquisition method in the fallback chain. FetchPage
// returns the listings it found; an empty slice without error means the
// method has nothing more to give.
type Driver interface {
	Source() types.Method
	FetchPage(ctx context.Context, target *types.RegionTarget, page int) ([]types.ListingSummary, error)
}

// searchPageURL returns the search page URL for page n. Page 1 is the
// start URL itself; later pages get the site's /page-N path suffix.
func searchPageURL(startURL string, page int) string {
	if page <= 1 {
		return startURL
	}
	parsed, err := url.Parse(startURL)
	if err != nil {
		return startURL
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/page-" + strconv.Itoa(page)
	return parsed.String()
}
