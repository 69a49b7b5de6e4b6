package synth

import (
	"math"

	"github.com/woozymasta/citygen/internal/osm"
)

const sidewalkWidth = 1.5

// road builds the carriageway ribbon and, for eligible classes, one
// sidewalk ribbon per side.
func (b *Builder) road(f osm.Feature, name func(string) string) []Geometry {
	coords := b.project(f.Points)
	if len(coords) < 2 {
		b.diag.Warnf("skipping %s road with %d usable vertices", f.Class, len(coords))
		return nil
	}

	var out []Geometry

	street := b.ribbon(coords, f.Width/2, 0, 0, roadLift)
	street.Name = name(ClassRoad)
	street.Class = ClassRoad
	out = append(out, street)

	if !f.Sidewalks {
		return out
	}

	// Offset parallel curves centered half a road plus half a sidewalk
	// away from the centerline, one per side.
	offset := f.Width/2 + sidewalkWidth/2
	for _, side := range []float64{-1, 1} {
		walk := b.ribbon(coords, sidewalkWidth/2, offset, side, sidewalkLift)
		walk.Name = name(ClassSidewalk)
		walk.Class = ClassSidewalk
		out = append(out, walk)
	}

	return out
}

// ribbon builds a quad strip along a polyline. Each source vertex
// yields a left/right pair displaced halfWidth along the local
// perpendicular; centerOffset×side shifts the whole strip sideways
// (zero for the road itself). Every vertex is terrain-following:
// its height is sampled at its own displaced position.
func (b *Builder) ribbon(coords [][2]float64, halfWidth, centerOffset, side, lift float64) Geometry {
	perps := perpendiculars(coords)

	vertices := make([][3]float64, 0, 2*len(coords))
	for i, c := range coords {
		px, py := perps[i][0], perps[i][1]
		cx := c[0] + px*centerOffset*side
		cy := c[1] + py*centerOffset*side

		lx, ly := cx+px*halfWidth, cy+py*halfWidth
		rx, ry := cx-px*halfWidth, cy-py*halfWidth

		vertices = append(vertices,
			[3]float64{lx, ly, b.grid.HeightAt(lx, ly) + lift},
			[3]float64{rx, ry, b.grid.HeightAt(rx, ry) + lift},
		)
	}

	faces := make([][]int, 0, len(coords)-1)
	for i := 0; i < len(coords)-1; i++ {
		v1 := i * 2
		v2 := i*2 + 1
		v3 := (i+1)*2 + 1
		v4 := (i + 1) * 2
		faces = append(faces, []int{v1, v2, v3, v4})
	}

	return Geometry{Vertices: vertices, Faces: faces}
}

// perpendiculars returns the unit perpendicular at each polyline
// vertex, using the averaged direction of the adjacent segments for
// interior vertices so joints stay mitered.
func perpendiculars(coords [][2]float64) [][2]float64 {
	n := len(coords)
	out := make([][2]float64, n)

	for i := range coords {
		var dx, dy float64
		switch {
		case i == 0:
			dx = coords[1][0] - coords[0][0]
			dy = coords[1][1] - coords[0][1]
		case i == n-1:
			dx = coords[n-1][0] - coords[n-2][0]
			dy = coords[n-1][1] - coords[n-2][1]
		default:
			dx1 := coords[i][0] - coords[i-1][0]
			dy1 := coords[i][1] - coords[i-1][1]
			dx2 := coords[i+1][0] - coords[i][0]
			dy2 := coords[i+1][1] - coords[i][1]
			dx = (dx1 + dx2) / 2
			dy = (dy1 + dy2) / 2
		}

		length := math.Hypot(dx, dy)
		if length > 0 {
			out[i] = [2]float64{-dy / length, dx / length}
		}
	}

	return out
}
