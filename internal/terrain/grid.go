// Package terrain stores the acquired elevation samples as a height
// field and answers ground-height queries for arbitrary points.
package terrain

import (
	"math"

	"github.com/woozymasta/citygen/internal/geo"
)

// Grid is a regular lat/lon subdivision of a bounding box holding one
// elevation sample per node. Nodes are row-major: row 0 is the MinLat
// edge, column 0 the MinLon edge. The node count is fixed at creation.
type Grid struct {
	box  geo.BoundingBox
	proj geo.Projector
	side int
	elev []float64
}

// NewGrid creates a grid with side cells (side+1 nodes) per axis,
// initialized to zero elevation.
func NewGrid(box geo.BoundingBox, side int) *Grid {
	nodes := side + 1
	return &Grid{
		box:  box,
		proj: geo.NewProjector(box),
		side: side,
		elev: make([]float64, nodes*nodes),
	}
}

// Side returns the cell count per axis.
func (g *Grid) Side() int { return g.side }

// Rows returns the node count on the latitude axis.
func (g *Grid) Rows() int { return g.side + 1 }

// Cols returns the node count on the longitude axis.
func (g *Grid) Cols() int { return g.side + 1 }

// Box returns the bounding box the grid spans.
func (g *Grid) Box() geo.BoundingBox { return g.box }

// Projector returns the local projection centered on the grid's box.
func (g *Grid) Projector() geo.Projector { return g.proj }

// NodeLatLon returns the geographic position of node (row, col).
func (g *Grid) NodeLatLon(row, col int) (lat, lon float64) {
	lat = g.box.MinLat + float64(row)/float64(g.side)*(g.box.MaxLat-g.box.MinLat)
	lon = g.box.MinLon + float64(col)/float64(g.side)*(g.box.MaxLon-g.box.MinLon)
	return lat, lon
}

// SetNode stores the elevation sample for node (row, col).
func (g *Grid) SetNode(row, col int, elevation float64) {
	g.elev[row*g.Cols()+col] = elevation
}

// Elevation returns the stored sample for node (row, col).
func (g *Grid) Elevation(row, col int) float64 {
	return g.elev[row*g.Cols()+col]
}

// HeightAt returns the ground elevation at a local (x, y) point in
// meters, bilinearly interpolated from the four surrounding nodes.
// Points outside the grid extent clamp to the nearest edge cell.
func (g *Grid) HeightAt(x, y float64) float64 {
	lat, lon := g.proj.Unproject(x, y)

	fi := (lat - g.box.MinLat) / (g.box.MaxLat - g.box.MinLat) * float64(g.side)
	fj := (lon - g.box.MinLon) / (g.box.MaxLon - g.box.MinLon) * float64(g.side)

	fi = clamp(fi, 0, float64(g.side))
	fj = clamp(fj, 0, float64(g.side))

	i0 := int(math.Floor(fi))
	j0 := int(math.Floor(fj))
	if i0 >= g.side {
		i0 = g.side - 1
	}
	if j0 >= g.side {
		j0 = g.side - 1
	}

	ti := fi - float64(i0)
	tj := fj - float64(j0)

	h00 := g.Elevation(i0, j0)
	h01 := g.Elevation(i0, j0+1)
	h10 := g.Elevation(i0+1, j0)
	h11 := g.Elevation(i0+1, j0+1)

	bottom := h00*(1-tj) + h01*tj
	top := h10*(1-tj) + h11*tj

	return bottom*(1-ti) + top*ti
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
