package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// residentialTypes is the closed set of schema.org types accepted as a
// property listing. Anything else in a page's linked data is ignored.
var residentialTypes = map[string]struct{}{
	"SingleFamilyResidence": {},
	"House":                 {},
	"Apartment":             {},
	"Residence":             {},
	"Townhouse":             {},
	"Condominium":           {},
	"RealEstateListing":     {},
	"Product":               {},
}

// DetailFromJSONLD extracts a listing record from ld+json script blocks.
// The first object with a residential @type wins.
func DetailFromJSONLD(body []byte) types.DetailRecord {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return types.DetailRecord{}
	}

	var out types.DetailRecord
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		for _, obj := range ldObjects(sel.Text()) {
			if !isResidential(obj) {
				continue
			}
			out = detailFromLD(obj)
			return false
		}
		return true
	})
	return out
}

// ldObjects decodes a script body into candidate objects: a single object,
// a top-level array, or the members of an @graph.
func ldObjects(text string) []map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil
	}
	var out []map[string]any
	switch v := raw.(type) {
	case map[string]any:
		out = append(out, v)
		if graph, ok := v["@graph"].([]any); ok {
			for _, g := range graph {
				if m, ok := g.(map[string]any); ok {
					out = append(out, m)
				}
			}
		}
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func isResidential(m map[string]any) bool {
	switch t := m["@type"].(type) {
	case string:
		_, ok := residentialTypes[t]
		return ok
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				if _, hit := residentialTypes[s]; hit {
					return true
				}
			}
		}
	}
	return false
}

func detailFromLD(m map[string]any) types.DetailRecord {
	var d types.DetailRecord
	d.URL = strField(m, "url")
	d.Description = strField(m, "description")
	d.ListingDate = dateField(m, "datePosted", "dateCreated")

	if addr, ok := m["address"].(map[string]any); ok {
		d.Street = strField(addr, "streetAddress")
		d.City = strField(addr, "addressLocality")
		d.State = strField(addr, "addressRegion")
		d.Zip = strField(addr, "postalCode")
	}
	if geo, ok := m["geo"].(map[string]any); ok {
		d.Latitude = numField(geo, "latitude")
		d.Longitude = numField(geo, "longitude")
	}

	d.Price = ldPrice(m)
	d.Beds = numField(m, "numberOfRooms", "numberOfBedrooms")
	d.Baths = numField(m, "numberOfBathroomsTotal", "numberOfFullBathrooms")
	if fs, ok := m["floorSize"].(map[string]any); ok {
		d.Sqft = numField(fs, "value")
	}
	d.YearBuilt = intField(m, "yearBuilt")

	// Product and RealEstateListing wrap a home without naming its shape.
	if t, ok := m["@type"].(string); ok && t != "Product" && t != "RealEstateListing" {
		d.PropertyType = t
	}
	return d
}

func ldPrice(m map[string]any) string {
	if offers, ok := m["offers"].(map[string]any); ok {
		if s := priceField(offers, "price", "lowPrice", "highPrice"); s != "" {
			return s
		}
	}
	return priceField(m, "price")
}
