// Package region resolves the geographic search target for a run from the
// configured start URL and explicit overrides.
package region

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/shahidirfan100/Redfin-Property-Scraper/internal/config"
	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// ErrNoRegion is returned when neither the start URL nor the overrides
// yield a usable region id and type.
var ErrNoRegion = errors.New("no region target resolvable")

var pageSegment = regexp.MustCompile(`^page-\d+$`)

// Resolve derives the search target from the start URL, applying config
// overrides on top. Overrides win over anything parsed from the URL.
func Resolve(startURL string, override config.RegionConfig) (*types.RegionTarget, error) {
	target := &types.RegionTarget{StartURL: startURL}

	if startURL != "" {
		u, err := url.Parse(startURL)
		if err != nil {
			return nil, fmt.Errorf("parse start url: %w", err)
		}
		fromPath(u.Path, target)
	}

	if override.ID != "" {
		target.ID = override.ID
	}
	if override.Type != "" {
		rt, err := types.ParseRegionType(override.Type)
		if err != nil {
			return nil, err
		}
		target.Type = rt
	}

	if target.ID == "" || target.Type == "" {
		return nil, ErrNoRegion
	}
	if _, ok := target.Type.Code(); !ok {
		return nil, fmt.Errorf("region type %q has no api code", target.Type)
	}
	return target, nil
}

// fromPath scans URL path segments for a region type word followed by a
// numeric id, e.g. /city/29470/IL/Chicago, and derives the market slug.
func fromPath(path string, target *types.RegionTarget) {
	segs := splitPath(path)
	for i, seg := range segs {
		rt, err := types.ParseRegionType(seg)
		if err != nil {
			continue
		}
		if i+1 < len(segs) && isNumeric(segs[i+1]) {
			target.Type = rt
			target.ID = segs[i+1]
			break
		}
	}
	target.Market = marketFrom(segs)
}

// marketFrom picks the trailing human-readable segment as the market slug.
func marketFrom(segs []string) string {
	for i := len(segs) - 1; i >= 0; i-- {
		seg := segs[i]
		if isNumeric(seg) || pageSegment.MatchString(seg) {
			continue
		}
		if _, err := types.ParseRegionType(seg); err == nil {
			continue
		}
		return slugify(seg)
	}
	return ""
}

func splitPath(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// slugify lowercases and collapses non-alphanumerics to single hyphens.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
