package packet

import (
	"fmt"
	"strings"
)

// Region is a LoRaWAN regulatory region.
type Region int32

const (
	RegionUS915 Region = iota
	RegionEU868
	RegionEU433
	RegionCN470
	RegionCN779
	RegionAU915
	RegionAS923
	RegionKR920
	RegionIN865
)

var regionNames = map[Region]string{
	RegionUS915: "US915",
	RegionEU868: "EU868",
	RegionEU433: "EU433",
	RegionCN470: "CN470",
	RegionCN779: "CN779",
	RegionAU915: "AU915",
	RegionAS923: "AS923",
	RegionKR920: "KR920",
	RegionIN865: "IN865",
}

// String returns the region name.
func (r Region) String() string {
	if name, ok := regionNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRegion parses a region name, case-insensitively.
func ParseRegion(s string) (Region, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for r, name := range regionNames {
		if name == want {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown region %q", s)
}
