package synth

import (
	"github.com/woozymasta/citygen/internal/osm"
)

// water builds a flat fan-triangulated surface slightly above the
// ground level at the polygon centroid. Water stays level rather than
// following the terrain under it.
func (b *Builder) water(f osm.Feature) (Geometry, bool) {
	coords := b.project(f.Points)
	coords = dropClosingPoint(coords)

	if len(coords) < 3 {
		b.diag.Warnf("skipping water body with %d usable vertices", len(coords))
		return Geometry{}, false
	}

	var cx, cy float64
	for _, c := range coords {
		cx += c[0]
		cy += c[1]
	}
	cx /= float64(len(coords))
	cy /= float64(len(coords))
	level := b.grid.HeightAt(cx, cy) + waterLift

	vertices := make([][3]float64, 0, len(coords))
	for _, c := range coords {
		vertices = append(vertices, [3]float64{c[0], c[1], level})
	}

	faces := make([][]int, 0, len(coords)-2)
	for i := 1; i < len(coords)-1; i++ {
		faces = append(faces, []int{0, i, i + 1})
	}

	return Geometry{Class: ClassWater, Vertices: vertices, Faces: faces}, true
}
