// Package reconcile folds the partial records the extraction strategies
// produce into canonical output rows.
package reconcile

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/extract"
	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// Merge combines a search card summary with the detail record scraped from
// its listing page. Detail fields win and the summary fills whatever the
// detail pass missed. source names the acquisition path that produced the
// page; baseURL anchors relative listing links.
func Merge(summary types.ListingSummary, detail types.DetailRecord, source types.Method, baseURL string, now time.Time) types.PropertyRecord {
	merged := detail.Fill(types.DetailRecord{ListingSummary: summary})

	abs := ResolveURL(baseURL, merged.URL)
	id := merged.PropertyID
	if id == "" {
		id = extract.PropertyIDFromURL(abs)
	}
	if id == "" {
		id = abs
	}

	return types.PropertyRecord{
		PropertyID:    id,
		URL:           abs,
		Address:       ComposeAddress(merged.Street, merged.City, merged.State, merged.Zip),
		StreetAddress: merged.Street,
		City:          merged.City,
		State:         merged.State,
		Zip:           merged.Zip,
		Price:         FormatPrice(merged.Price),
		Beds:          merged.Beds,
		Baths:         merged.Baths,
		Sqft:          merged.Sqft,
		PropertyType:  merged.PropertyType,
		Status:        merged.Status,
		ListingDate:   merged.ListingDate,
		Description:   merged.Description,
		Latitude:      merged.Latitude,
		Longitude:     merged.Longitude,
		MLSNumber:     merged.MLSNumber,
		LotSize:       merged.LotSize,
		YearBuilt:     merged.YearBuilt,
		HOA:           merged.HOA,
		Source:        source,
		FetchedAt:     now.UTC().Format(time.RFC3339),
	}
}

// FormatPrice renders a raw price as a display string. Values already
// carrying a currency symbol pass through untouched; bare numerics get a
// dollar sign and thousands separators. Unparseable input comes back nil.
func FormatPrice(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.ContainsRune(raw, '$') {
		return &raw
	}
	n := extract.Number(raw)
	if n == nil {
		return nil
	}
	s := "$" + formatAmount(*n)
	return &s
}

func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	out := groupThousands(whole)
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ResolveURL makes ref absolute against base. Already absolute refs pass
// through; an unparseable base leaves ref as it came.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if parsed.IsAbs() {
		return ref
	}
	root, err := url.Parse(base)
	if err != nil || root.Host == "" {
		return ref
	}
	return root.ResolveReference(parsed).String()
}

// ComposeAddress joins the address parts into a single display line.
func ComposeAddress(street, city, state, zip string) string {
	var parts []string
	for _, p := range []string{street, city, strings.TrimSpace(state + " " + zip)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// MissingNumerics names the nullable output fields a record ends up
// without, for the per-record debug line.
func MissingNumerics(rec types.PropertyRecord) []string {
	var missing []string
	if rec.Price == nil {
		missing = append(missing, "price")
	}
	if rec.Beds == nil {
		missing = append(missing, "beds")
	}
	if rec.Baths == nil {
		missing = append(missing, "baths")
	}
	if rec.Sqft == nil {
		missing = append(missing, "sqft")
	}
	if rec.Latitude == nil {
		missing = append(missing, "latitude")
	}
	if rec.Longitude == nil {
		missing = append(missing, "longitude")
	}
	if rec.LotSize == nil {
		missing = append(missing, "lotSize")
	}
	if rec.YearBuilt == nil {
		missing = append(missing, "yearBuilt")
	}
	if rec.HOA == nil {
		missing = append(missing, "hoa")
	}
	return missing
}
