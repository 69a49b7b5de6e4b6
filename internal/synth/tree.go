package synth

import (
	"math"

	"github.com/woozymasta/citygen/internal/osm"
)

const (
	trunkRadius   = 0.3
	trunkHeight   = 2.0
	canopyRadius  = 2.0
	canopyHeight  = 3.0
	trunkSegments = 6
	canopyRings   = 6
	canopySlices  = 8
)

// trees places tree geometry for point trees and tree rows. Rows are
// sampled at every other vertex to avoid over-density along the way.
func (b *Builder) trees(f osm.Feature, name func(string) string) []Geometry {
	coords := b.project(f.Points)

	step := 1
	if f.Kind == osm.TreeRow {
		step = 2
	}

	var out []Geometry
	for i := 0; i < len(coords); i += step {
		x, y := coords[i][0], coords[i][1]
		ground := b.grid.HeightAt(x, y)

		trunk := trunkMesh(x, y, ground)
		trunk.Name = name(ClassTrunk)
		out = append(out, trunk)

		canopy := canopyMesh(x, y, ground)
		canopy.Name = name(ClassCanopy)
		out = append(out, canopy)
	}

	return out
}

// trunkMesh is an open hexagonal prism from the ground up.
func trunkMesh(x, y, ground float64) Geometry {
	vertices := make([][3]float64, 0, 2*trunkSegments)
	for _, z := range []float64{ground, ground + trunkHeight} {
		for i := 0; i < trunkSegments; i++ {
			angle := 2 * math.Pi * float64(i) / trunkSegments
			vertices = append(vertices, [3]float64{
				x + trunkRadius*math.Cos(angle),
				y + trunkRadius*math.Sin(angle),
				z,
			})
		}
	}

	faces := make([][]int, 0, trunkSegments)
	for i := 0; i < trunkSegments; i++ {
		next := (i + 1) % trunkSegments
		faces = append(faces, []int{i, next, next + trunkSegments, i + trunkSegments})
	}

	return Geometry{Class: ClassTrunk, Vertices: vertices, Faces: faces}
}

// canopyMesh is a low-poly UV sphere centered above the trunk.
func canopyMesh(x, y, ground float64) Geometry {
	centerZ := ground + trunkHeight + canopyHeight/2

	vertices := make([][3]float64, 0, canopyRings*canopySlices)
	for i := 0; i < canopyRings; i++ {
		theta := math.Pi * float64(i) / float64(canopyRings-1)
		for j := 0; j < canopySlices; j++ {
			phi := 2 * math.Pi * float64(j) / float64(canopySlices)
			vertices = append(vertices, [3]float64{
				x + canopyRadius*math.Sin(theta)*math.Cos(phi),
				y + canopyRadius*math.Sin(theta)*math.Sin(phi),
				centerZ + canopyRadius*math.Cos(theta),
			})
		}
	}

	faces := make([][]int, 0, (canopyRings-1)*canopySlices)
	for i := 0; i < canopyRings-1; i++ {
		for j := 0; j < canopySlices; j++ {
			next := (j + 1) % canopySlices
			faces = append(faces, []int{
				i*canopySlices + j,
				i*canopySlices + next,
				(i+1)*canopySlices + next,
				(i+1)*canopySlices + j,
			})
		}
	}

	return Geometry{Class: ClassCanopy, Vertices: vertices, Faces: faces}
}
