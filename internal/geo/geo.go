// Package geo handles geographic data structures and coordinate conversions.
package geo

import (
	"fmt"
	"math"
)

// MetersPerDegree is the approximate length of one degree of latitude.
// Longitude degrees shrink by cos(latitude).
const MetersPerDegree = 111320.0

// LatLon is a geographic coordinate pair in degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// BoundingBox is a rectangular geographic region in degrees.
type BoundingBox struct {
	MinLat float64 `yaml:"min_lat" json:"min_lat"`
	MaxLat float64 `yaml:"max_lat" json:"max_lat"`
	MinLon float64 `yaml:"min_lon" json:"min_lon"`
	MaxLon float64 `yaml:"max_lon" json:"max_lon"`
}

// Validate checks that the box is non-degenerate (min < max on both axes).
func (b BoundingBox) Validate() error {
	if b.MinLat >= b.MaxLat {
		return fmt.Errorf("invalid latitude range: %f >= %f", b.MinLat, b.MaxLat)
	}
	if b.MinLon >= b.MaxLon {
		return fmt.Errorf("invalid longitude range: %f >= %f", b.MinLon, b.MaxLon)
	}
	return nil
}

// Center returns the geographic center of the box.
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// MeterExtent returns the physical size of the box in meters,
// using the equirectangular approximation at the box center latitude.
func (b BoundingBox) MeterExtent() (lonMeters, latMeters float64) {
	centerLat, _ := b.Center()
	latMeters = (b.MaxLat - b.MinLat) * MetersPerDegree
	lonMeters = (b.MaxLon - b.MinLon) * MetersPerDegree * math.Cos(centerLat*math.Pi/180)
	return lonMeters, latMeters
}

// Projector converts lat/lon to a local planar coordinate system in meters,
// centered on a bounding box. It is a small-area approximation: accuracy
// degrades beyond roughly 1 km², which covers the intended working range.
//
// Projector is a pure value and safe for concurrent use.
type Projector struct {
	centerLat float64
	centerLon float64
	lonScale  float64
}

// NewProjector builds a projector with its origin at the box center.
func NewProjector(b BoundingBox) Projector {
	centerLat, centerLon := b.Center()
	return Projector{
		centerLat: centerLat,
		centerLon: centerLon,
		lonScale:  MetersPerDegree * math.Cos(centerLat*math.Pi/180),
	}
}

// Project converts a geographic coordinate to local meters relative to
// the box center. X grows eastward, Y grows northward.
func (p Projector) Project(lat, lon float64) (x, y float64) {
	x = (lon - p.centerLon) * p.lonScale
	y = (lat - p.centerLat) * MetersPerDegree
	return x, y
}

// Unproject is the inverse of Project.
func (p Projector) Unproject(x, y float64) (lat, lon float64) {
	lon = p.centerLon + x/p.lonScale
	lat = p.centerLat + y/MetersPerDegree
	return lat, lon
}
