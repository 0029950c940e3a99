// Package extract turns raw page bytes into partial listing records. Every
// function here is pure: same bytes in, same records out, no I/O and no
// clock. Parse failures yield empty results, never errors, so a bad payload
// degrades into the next fallback instead of aborting a run.
package extract

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Number parses a numeric field from arbitrary display text. Currency
// symbols, separators, and unit suffixes are tolerated ("$450,000",
// "1,850 sqft"). Anything that still fails to parse yields nil, never zero.
func Number(raw string) *float64 {
	cleaned := keepNumeric(raw)
	if cleaned == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &f
}

// IntNumber parses an integer-valued field such as a year.
func IntNumber(raw string) *int {
	f := Number(raw)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// keepNumeric strips everything but digits and the decimal point.
func keepNumeric(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Text collapses runs of whitespace into single spaces.
func Text(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// StripTags drops markup and returns the collapsed text content. Inputs
// that are not parseable HTML come back as plain collapsed text.
func StripTags(raw string) string {
	if !strings.ContainsRune(raw, '<') {
		return Text(raw)
	}
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return Text(raw)
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := Text(n.Data); t != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
			fallthrough
		default:
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				walk(child)
			}
		}
	}
	walk(root)
	return b.String()
}

// DateString normalises a listing date value: strings pass through trimmed,
// numeric epoch values (seconds or milliseconds) become UTC dates.
func DateString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t <= 0 {
			return ""
		}
		sec := int64(t)
		if t > 1e12 { // milliseconds
			sec = int64(t / 1000)
		}
		return time.Unix(sec, 0).UTC().Format("2006-01-02")
	}
	return ""
}

// Float and IntPtr exist for converters and tests that hold literals.
func Float(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }
