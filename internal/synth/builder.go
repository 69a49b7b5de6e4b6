package synth

import (
	"fmt"

	"github.com/woozymasta/citygen/internal/diag"
	"github.com/woozymasta/citygen/internal/geo"
	"github.com/woozymasta/citygen/internal/osm"
	"github.com/woozymasta/citygen/internal/terrain"

	"github.com/rs/zerolog/log"
)

// Builder synthesizes geometry from projected features and the terrain
// grid. Malformed features are skipped and logged, never fatal.
type Builder struct {
	grid *terrain.Grid
	proj geo.Projector
	diag *diag.Reporter
}

// NewBuilder creates a builder over a populated terrain grid.
func NewBuilder(grid *terrain.Grid, reporter *diag.Reporter) *Builder {
	return &Builder{grid: grid, proj: grid.Projector(), diag: reporter}
}

// Build produces the full scene: the terrain mesh first, then one or
// more geometries per feature. The feature slice may be empty, which
// yields a terrain-only scene.
func (b *Builder) Build(features []osm.Feature) []Geometry {
	scene := []Geometry{b.Terrain()}

	counts := map[string]int{}
	name := func(class string) string {
		counts[class]++
		return fmt.Sprintf("%s_%03d", class, counts[class])
	}

	for _, f := range features {
		switch f.Kind {
		case osm.Building:
			if g, ok := b.building(f); ok {
				g.Name = name(ClassBuilding)
				scene = append(scene, g)
			}
		case osm.Road:
			for _, g := range b.road(f, name) {
				scene = append(scene, g)
			}
		case osm.Water:
			if g, ok := b.water(f); ok {
				g.Name = name(ClassWater)
				scene = append(scene, g)
			}
		case osm.TreePoint, osm.TreeRow:
			for _, g := range b.trees(f, name) {
				scene = append(scene, g)
			}
		}
	}

	log.Info().Int("geometries", len(scene)).Msg("Scene synthesis complete")
	return scene
}

// Terrain builds the ground mesh: one vertex per grid node at its
// sampled elevation, quad faces between nodes.
func (b *Builder) Terrain() Geometry {
	rows, cols := b.grid.Rows(), b.grid.Cols()

	vertices := make([][3]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			lat, lon := b.grid.NodeLatLon(i, j)
			x, y := b.proj.Project(lat, lon)
			vertices = append(vertices, [3]float64{x, y, b.grid.HeightAt(x, y)})
		}
	}

	faces := make([][]int, 0, (rows-1)*(cols-1))
	for i := 0; i < rows-1; i++ {
		for j := 0; j < cols-1; j++ {
			v1 := i*cols + j
			v2 := i*cols + j + 1
			v3 := (i+1)*cols + j + 1
			v4 := (i+1)*cols + j
			faces = append(faces, []int{v1, v2, v3, v4})
		}
	}

	return Geometry{Name: "terrain", Class: ClassTerrain, Vertices: vertices, Faces: faces}
}

// project converts a feature's geographic points to local meters.
func (b *Builder) project(points []geo.LatLon) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		x, y := b.proj.Project(p.Lat, p.Lon)
		out[i] = [2]float64{x, y}
	}
	return out
}
