package synth

import (
	"github.com/woozymasta/citygen/internal/osm"
)

// building extrudes a footprint into a closed volume. The base sits at
// the lowest ground sample under the footprint so the volume stays
// buried on sloped terrain instead of floating on the downhill side.
func (b *Builder) building(f osm.Feature) (Geometry, bool) {
	coords := b.project(f.Points)
	coords = dropClosingPoint(coords)

	if len(coords) < 3 {
		b.diag.Warnf("skipping building with %d usable vertices", len(coords))
		return Geometry{}, false
	}

	base := b.grid.HeightAt(coords[0][0], coords[0][1])
	for _, c := range coords[1:] {
		if h := b.grid.HeightAt(c[0], c[1]); h < base {
			base = h
		}
	}

	n := len(coords)
	vertices := make([][3]float64, 0, 2*n)
	for _, c := range coords {
		vertices = append(vertices, [3]float64{c[0], c[1], base})
	}
	for _, c := range coords {
		vertices = append(vertices, [3]float64{c[0], c[1], base + f.Height})
	}

	faces := make([][]int, 0, n+2)

	bottom := make([]int, n)
	for i := range bottom {
		bottom[i] = i
	}
	faces = append(faces, bottom)

	top := make([]int, n)
	for i := range top {
		top[i] = 2*n - 1 - i
	}
	faces = append(faces, top)

	for i := 0; i < n; i++ {
		next := (i + 1) % n
		faces = append(faces, []int{i, next, next + n, i + n})
	}

	return Geometry{Class: ClassBuilding, Vertices: vertices, Faces: faces}, true
}

// dropClosingPoint removes the duplicated last vertex of a closed ring.
func dropClosingPoint(coords [][2]float64) [][2]float64 {
	if len(coords) > 1 && coords[0] == coords[len(coords)-1] {
		return coords[:len(coords)-1]
	}
	return coords
}
