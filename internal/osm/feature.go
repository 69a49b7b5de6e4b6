// Package osm acquires vector map features for a bounding box from the
// Overpass API, with automatic failover across mirror endpoints.
package osm

import (
	"strconv"
	"strings"

	"github.com/woozymasta/citygen/internal/geo"
)

// Kind is the feature variant. Each kind has its own synthesis rule.
type Kind int

const (
	// Building is a closed footprint way tagged with building=*.
	Building Kind = iota
	// Road is a highway way.
	Road
	// Water is a waterway or natural=water way.
	Water
	// TreePoint is a single natural=tree node.
	TreePoint
	// TreeRow is a natural=tree_row way.
	TreeRow
)

func (k Kind) String() string {
	switch k {
	case Building:
		return "building"
	case Road:
		return "road"
	case Water:
		return "water"
	case TreePoint:
		return "tree"
	case TreeRow:
		return "tree_row"
	default:
		return "unknown"
	}
}

// Feature is one acquired map feature. Features are created once from
// the Overpass payload and are read-only inputs to geometry synthesis.
type Feature struct {
	Kind   Kind
	Points []geo.LatLon
	Tags   map[string]string

	// Derived attributes, filled at parse time.
	Height    float64 // buildings: estimated height in meters
	Width     float64 // roads: carriageway width in meters
	Class     string  // roads: highway class tag
	Sidewalks bool    // roads: eligible for derived sidewalks
}

const (
	metersPerLevel = 3.0
	defaultLevels  = 3
)

// buildingHeight estimates a building's height from its tags: explicit
// height wins, then building:levels × 3 m, then a 3-level default.
func buildingHeight(tags map[string]string) float64 {
	if h, ok := tags["height"]; ok {
		raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(h), "m"))
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			return v
		}
	}
	if l, ok := tags["building:levels"]; ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(l), 64); err == nil && v > 0 {
			return v * metersPerLevel
		}
	}
	return defaultLevels * metersPerLevel
}

// roadWidth maps a highway class to a carriageway width in meters.
func roadWidth(class string) float64 {
	switch class {
	case "motorway", "trunk":
		return 10.0
	case "primary", "secondary":
		return 6.0
	case "tertiary", "residential":
		return 4.0
	default:
		return 3.0
	}
}

// sidewalkEligible reports whether a road class gets derived sidewalks.
// High-speed classes never do.
func sidewalkEligible(class string) bool {
	switch class {
	case "motorway", "trunk", "motorway_link", "trunk_link":
		return false
	default:
		return true
	}
}
