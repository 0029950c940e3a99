package extract

import (
	"encoding/json"
	"regexp"
	"sort"

	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// A statePattern locates one framework state assignment inside an inline
// script. Plain patterns are followed by a JSON object literal; quoted
// patterns by a JS string literal that itself contains JSON.
type statePattern struct {
	name   string
	re     *regexp.Regexp
	quoted bool
}

// statePatterns are tried in priority order. The set is closed: a new
// framework embed gets a new entry here, not an ad-hoc regex at a call
// site.
var statePatterns = []statePattern{
	{name: "reactServerState", re: regexp.MustCompile(`root\.__reactServerState\s*=\s*`)},
	{name: "initialState", re: regexp.MustCompile(`window\.__INITIAL_STATE__\s*=\s*`)},
	{name: "preloadedState", re: regexp.MustCompile(`window\.__PRELOADED_STATE__\s*=\s*JSON\.parse\(`), quoted: true},
	{name: "appData", re: regexp.MustCompile(`window\.__APP_DATA__\s*=\s*JSON\.parse\(`), quoted: true},
}

const walkDepthLimit = 8

// DecodeState finds the first embedded state blob in a page and decodes it.
// Returns nil when no pattern matches or the blob fails to parse.
func DecodeState(body []byte) map[string]any {
	text := string(body)
	for _, p := range statePatterns {
		loc := p.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		rest := text[loc[1]:]

		var blob string
		if p.quoted {
			quoted, ok := scanQuoted(rest)
			if !ok {
				continue
			}
			if err := json.Unmarshal([]byte(quoted), &blob); err != nil {
				continue
			}
		} else {
			object, ok := scanObject(rest)
			if !ok {
				continue
			}
			blob = object
		}

		var decoded map[string]any
		if err := json.Unmarshal([]byte(blob), &decoded); err != nil {
			continue
		}
		return decoded
	}
	return nil
}

// ListingsFromState extracts search result summaries from an embedded
// state blob.
func ListingsFromState(body []byte) []types.ListingSummary {
	homes := homeArrayIn(DecodeState(body))
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

// DetailFromState extracts a single listing record from an embedded state
// blob on a detail page.
func DetailFromState(body []byte) types.DetailRecord {
	decoded := DecodeState(body)
	if decoded == nil {
		return types.DetailRecord{}
	}
	obj := detailObjectIn(decoded, 0)
	if obj == nil {
		return types.DetailRecord{}
	}
	d := types.DetailRecord{ListingSummary: HomeFromMap(obj)}
	d.Description = strField(obj, "marketingRemarks", "remarks", "description")
	d.ListingDate = dateField(obj, "listingAddedDate", "onMarketDate", "listedDate", "listingDate")
	return d
}

// scanObject returns the balanced {...} literal at the start of s, honouring
// strings and escapes so braces inside values do not end the scan.
func scanObject(s string) (string, bool) {
	i := skipSpace(s, 0)
	if i >= len(s) || s[i] != '{' {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for j := i; j < len(s); j++ {
		c := s[j]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[i : j+1], true
			}
		}
	}
	return "", false
}

// scanQuoted returns the double-quoted JS string literal at the start of s,
// quotes included.
func scanQuoted(s string) (string, bool) {
	i := skipSpace(s, 0)
	if i >= len(s) || s[i] != '"' {
		return "", false
	}
	escaped := false
	for j := i + 1; j < len(s); j++ {
		c := s[j]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			return s[i : j+1], true
		}
	}
	return "", false
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			i++
		default:
			return i
		}
	}
	return i
}

// Known container keys, in priority order. The sweep below visits child
// maps in sorted key order so Go's random map iteration cannot change
// which candidate wins.
var homeArrayKeys = []string{"homes", "listings", "searchResults", "results"}

var detailObjectKeys = []string{"homeDetails", "property", "listing", "home", "mainHouseInfo"}

// homeArrayIn returns the first plausible listing array in decoded state.
func homeArrayIn(decoded map[string]any) []any {
	return homeArrayWalk(decoded, 0)
}

func homeArrayWalk(m map[string]any, depth int) []any {
	if m == nil || depth > walkDepthLimit {
		return nil
	}
	for _, k := range homeArrayKeys {
		if arr := listingArray(m[k]); arr != nil {
			return arr
		}
	}
	for _, k := range sortedKeys(m) {
		if child, ok := m[k].(map[string]any); ok {
			if arr := homeArrayWalk(child, depth+1); arr != nil {
				return arr
			}
		}
	}
	return nil
}

// listingArray accepts only non-empty arrays of objects.
func listingArray(v any) []any {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	if _, ok := arr[0].(map[string]any); !ok {
		return nil
	}
	return arr
}

func detailObjectIn(m map[string]any, depth int) map[string]any {
	if m == nil || depth > walkDepthLimit {
		return nil
	}
	for _, k := range detailObjectKeys {
		if child, ok := unwrap(m[k]).(map[string]any); ok && looksLikeHome(child) {
			return child
		}
	}
	if looksLikeHome(m) {
		return m
	}
	for _, k := range sortedKeys(m) {
		if child, ok := m[k].(map[string]any); ok {
			if found := detailObjectIn(child, depth+1); found != nil {
				return found
			}
		}
	}
	return nil
}

// looksLikeHome filters out arbitrary objects that merely live under a
// container key.
func looksLikeHome(m map[string]any) bool {
	for _, k := range []string{"propertyId", "listingId", "streetLine", "streetAddress", "price", "beds", "mlsId"} {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dateField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := DateString(unwrap(m[k])); s != "" {
			return s
		}
	}
	return ""
}
