package extract

import "github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"

// Listings runs the search-page cascade: the embedded state blob first,
// DOM cards as fallback. Search pages ship no usable linked data, so the
// cascade starts at the second strategy.
func Listings(body []byte) []types.ListingSummary {
	if out := ListingsFromState(body); len(out) > 0 {
		return out
	}
	return ListingsFromDOM(body)
}

// Detail runs the detail-page cascade: linked data, embedded state, then
// DOM. Results merge field-wise with earlier strategies taking precedence,
// so a strategy that only finds the description still contributes it.
func Detail(body []byte) types.DetailRecord {
	d := DetailFromJSONLD(body)
	d = d.Fill(DetailFromState(body))
	d = d.Fill(DetailFromDOM(body))
	return d
}
