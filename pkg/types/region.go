package types

import (
	"fmt"
	"strings"
)

// RegionType classifies the geography a search targets.
type RegionType string

const (
	RegionCity         RegionType = "city"
	RegionZipcode      RegionType = "zipcode"
	RegionNeighborhood RegionType = "neighborhood"
	RegionCounty       RegionType = "county"
	RegionState        RegionType = "state"
)

// regionCodes holds the numeric codes the search API expects per region type.
var regionCodes = map[RegionType]int{
	RegionNeighborhood: 1,
	RegionZipcode:      2,
	RegionState:        4,
	RegionCounty:       5,
	RegionCity:         6,
}

// Code returns the numeric API code for the region type.
func (t RegionType) Code() (int, bool) {
	code, ok := regionCodes[t]
	return code, ok
}

// ParseRegionType normalises a user-supplied region type string.
func ParseRegionType(raw string) (RegionType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "city":
		return RegionCity, nil
	case "zipcode", "zip":
		return RegionZipcode, nil
	case "neighborhood", "neighbourhood":
		return RegionNeighborhood, nil
	case "county":
		return RegionCounty, nil
	case "state":
		return RegionState, nil
	default:
		return "", fmt.Errorf("unknown region type %q", raw)
	}
}

// RegionTarget is the resolved search target for one run.
type RegionTarget struct {
	ID       string
	Type     RegionType
	Market   string
	StartURL string
}

// Code returns the numeric API code for the target's region type.
func (t RegionTarget) Code() (int, bool) {
	return t.Type.Code()
}
