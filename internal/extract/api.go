package extract

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// sentinelPrefix guards the search API's JSON bodies against cross-site
// script inclusion. It must be stripped before decoding.
const sentinelPrefix = "{}&&"

// StripSentinel removes the API's anti-eval prefix when present and leaves
// other bodies untouched.
func StripSentinel(body []byte) []byte {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte(sentinelPrefix)) {
		return trimmed[len(sentinelPrefix):]
	}
	return body
}

type apiEnvelope struct {
	ResultCode   *int            `json:"resultCode"`
	ErrorMessage string          `json:"errorMessage"`
	Payload      json.RawMessage `json:"payload"`
}

// ListingsFromAPI decodes a search API response body into summaries. A
// malformed body or an error payload yields no summaries; the caller
// treats that as end of results and moves on.
func ListingsFromAPI(body []byte) []types.ListingSummary {
	raw := StripSentinel(body)

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil
	}
	if env.ResultCode != nil && *env.ResultCode != 0 {
		return nil
	}

	payloadBytes := []byte(env.Payload)
	if len(payloadBytes) == 0 {
		// Some surfaces return the payload shape directly, unenveloped.
		payloadBytes = raw
	}
	var payload map[string]any
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil
	}

	homes := homeArrayIn(payload)
	out := make([]types.ListingSummary, 0, len(homes))
	for _, h := range homes {
		m, ok := h.(map[string]any)
		if !ok {
			continue
		}
		if s := HomeFromMap(m); !summaryEmpty(s) {
			out = append(out, s)
		}
	}
	return out
}

// HomeFromMap converts one of the site's home objects into a summary. The
// site wraps many fields in {"value": …} envelopes depending on surface,
// so every accessor unwraps before reading.
func HomeFromMap(m map[string]any) types.ListingSummary {
	s := types.ListingSummary{
		PropertyID:   idString(m, "propertyId", "propertyID", "id"),
		ListingID:    idString(m, "listingId", "listingID"),
		MLSNumber:    strField(m, "mlsId", "mlsNumber", "mls"),
		URL:          strField(m, "url", "detailUrl"),
		Street:       strField(m, "streetLine", "streetAddress", "street"),
		City:         strField(m, "city"),
		State:        strField(m, "state", "stateCode"),
		Zip:          strField(m, "zip", "zipCode", "postalCode"),
		Price:        priceField(m, "price", "priceInfo", "listPrice"),
		PropertyType: typeLabel(m),
		Status:       strField(m, "mlsStatus", "searchStatus", "status"),
		Beds:         numField(m, "beds", "bedrooms", "numBeds"),
		Baths:        numField(m, "baths", "bathrooms", "numBaths"),
		Sqft:         numField(m, "sqFt", "sqft", "squareFeet", "livingArea"),
		LotSize:      numField(m, "lotSize", "lotSqFt"),
		YearBuilt:    intField(m, "yearBuilt"),
		HOA:          numField(m, "hoa", "hoaFee", "hoaDues"),
	}
	s.Latitude, s.Longitude = latLong(m)
	return s
}

// summaryEmpty reports a summary with no identity at all; those are dropped.
func summaryEmpty(s types.ListingSummary) bool {
	return s.PropertyID == "" && s.URL == "" && s.Street == "" && s.MLSNumber == ""
}

// unwrap returns the inner value of a {"value": …} envelope, or v itself.
func unwrap(v any) any {
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["value"]; ok {
			return inner
		}
	}
	return v
}

func strField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := unwrap(m[k]).(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// idString also accepts numeric ids and formats them without an exponent.
func idString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := unwrap(m[k]).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func numField(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		switch v := unwrap(m[k]).(type) {
		case float64:
			f := v
			return &f
		case string:
			if n := Number(v); n != nil {
				return n
			}
		}
	}
	return nil
}

func intField(m map[string]any, keys ...string) *int {
	if f := numField(m, keys...); f != nil {
		n := int(*f)
		return &n
	}
	return nil
}

// priceField returns the raw price: numbers formatted plainly ("450000"),
// display strings kept as-is, nested amount objects unwrapped.
func priceField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := unwrap(m[k]).(type) {
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any:
			if s := priceField(v, "amount", "price", "displayPrice"); s != "" {
				return s
			}
		}
	}
	return ""
}

func latLong(m map[string]any) (*float64, *float64) {
	if v, ok := unwrap(m["latLong"]).(map[string]any); ok {
		lat := numField(v, "latitude")
		lng := numField(v, "longitude")
		if lat != nil || lng != nil {
			return lat, lng
		}
	}
	return numField(m, "latitude", "lat"), numField(m, "longitude", "lng", "long")
}

// propertyTypeLabels maps the site's numeric property type codes.
var propertyTypeLabels = map[int]string{
	1: "House",
	2: "Condo",
	3: "Townhouse",
	4: "Multi-Family",
	5: "Land",
	6: "Other",
	7: "Manufactured",
	8: "Co-op",
}

func typeLabel(m map[string]any) string {
	switch v := unwrap(m["propertyType"]).(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case float64:
		if label, ok := propertyTypeLabels[int(v)]; ok {
			return label
		}
	}
	return strField(m, "propertyTypeName", "homeType")
}
