package synth

import (
	"math"
	"testing"

	"github.com/woozymasta/citygen/internal/diag"
	"github.com/woozymasta/citygen/internal/geo"
	"github.com/woozymasta/citygen/internal/osm"
	"github.com/woozymasta/citygen/internal/terrain"
)

func testBox() geo.BoundingBox {
	return geo.BoundingBox{MinLat: 48.8566, MaxLat: 48.8600, MinLon: 2.2900, MaxLon: 2.2950}
}

// flatBuilder returns a builder over an all-zero terrain grid.
func flatBuilder() (*Builder, *diag.Reporter) {
	reporter := diag.New()
	grid := terrain.NewGrid(testBox(), 20)
	return NewBuilder(grid, reporter), reporter
}

func triangle(latOff, lonOff float64) []geo.LatLon {
	base := geo.LatLon{Lat: 48.8570 + latOff, Lon: 2.2910 + lonOff}
	return []geo.LatLon{
		base,
		{Lat: base.Lat + 0.0002, Lon: base.Lon},
		{Lat: base.Lat, Lon: base.Lon + 0.0002},
		base, // closing vertex, as Overpass delivers rings
	}
}

func classCount(scene []Geometry) map[string]int {
	counts := map[string]int{}
	for _, g := range scene {
		counts[g.Class]++
	}
	return counts
}

func TestBuildCitySceneEndToEnd(t *testing.T) {
	b, reporter := flatBuilder()

	features := []osm.Feature{
		{Kind: osm.Building, Points: triangle(0, 0), Height: 9},
		{Kind: osm.Building, Points: triangle(0.0005, 0), Height: 12},
		{Kind: osm.Building, Points: triangle(0, 0.0008), Height: 15},
		{
			Kind:      osm.Road,
			Class:     "residential",
			Width:     4,
			Sidewalks: true,
			Points: []geo.LatLon{
				{Lat: 48.8570, Lon: 2.2905},
				{Lat: 48.8580, Lon: 2.2915},
				{Lat: 48.8590, Lon: 2.2925},
			},
		},
		{
			Kind:  osm.Road,
			Class: "motorway",
			Width: 10,
			Points: []geo.LatLon{
				{Lat: 48.8570, Lon: 2.2940},
				{Lat: 48.8595, Lon: 2.2940},
			},
		},
	}

	scene := b.Build(features)
	counts := classCount(scene)

	if counts[ClassTerrain] != 1 {
		t.Errorf("terrain meshes = %d, want 1", counts[ClassTerrain])
	}
	if counts[ClassBuilding] != 3 {
		t.Errorf("buildings = %d, want 3", counts[ClassBuilding])
	}
	if counts[ClassRoad] != 2 {
		t.Errorf("roads = %d, want 2", counts[ClassRoad])
	}
	// Only the residential road is eligible: two ribbons, one per side.
	if counts[ClassSidewalk] != 2 {
		t.Errorf("sidewalks = %d, want exactly 2", counts[ClassSidewalk])
	}

	for _, g := range scene {
		for _, v := range g.Vertices {
			switch g.Class {
			case ClassRoad:
				if math.Abs(v[2]-roadLift) > 1e-9 {
					t.Fatalf("road vertex at z=%f, want %f on flat terrain", v[2], roadLift)
				}
			case ClassSidewalk:
				if math.Abs(v[2]-sidewalkLift) > 1e-9 {
					t.Fatalf("sidewalk vertex at z=%f, want %f on flat terrain", v[2], sidewalkLift)
				}
			case ClassTerrain:
				if v[2] != 0 {
					t.Fatalf("terrain vertex at z=%f, want 0", v[2])
				}
			}
		}
	}

	if len(reporter.Warnings()) != 0 || len(reporter.Errors()) != 0 {
		t.Errorf("clean scene logged %d warnings, %d errors",
			len(reporter.Warnings()), len(reporter.Errors()))
	}
}

func TestTerrainMeshShape(t *testing.T) {
	b, _ := flatBuilder()
	g := b.Terrain()

	if got := len(g.Vertices); got != 21*21 {
		t.Errorf("terrain vertices = %d, want %d", got, 21*21)
	}
	if got := len(g.Faces); got != 20*20 {
		t.Errorf("terrain faces = %d, want %d", got, 20*20)
	}
	for _, f := range g.Faces {
		if len(f) != 4 {
			t.Fatalf("terrain face with %d vertices, want quads", len(f))
		}
	}
}

func TestTerrainFollowsGrid(t *testing.T) {
	reporter := diag.New()
	grid := terrain.NewGrid(testBox(), 20)
	for i := 0; i < grid.Rows(); i++ {
		for j := 0; j < grid.Cols(); j++ {
			grid.SetNode(i, j, float64(i))
		}
	}

	g := NewBuilder(grid, reporter).Terrain()

	// Row-major vertex order: vertex (i, j) carries row i's elevation.
	for i := 0; i < grid.Rows(); i++ {
		v := g.Vertices[i*grid.Cols()]
		if math.Abs(v[2]-float64(i)) > 1e-6 {
			t.Fatalf("terrain vertex row %d at z=%f, want %d", i, v[2], i)
		}
	}
}

func TestBuildingExtrusion(t *testing.T) {
	b, _ := flatBuilder()

	g, ok := b.building(osm.Feature{Kind: osm.Building, Points: triangle(0, 0), Height: 12})
	if !ok {
		t.Fatal("valid footprint rejected")
	}

	// Closing vertex dropped: 3 corners, doubled for bottom and top.
	if len(g.Vertices) != 6 {
		t.Fatalf("vertices = %d, want 6", len(g.Vertices))
	}
	// Bottom, top, and one side quad per edge.
	if len(g.Faces) != 5 {
		t.Fatalf("faces = %d, want 5", len(g.Faces))
	}

	for i := 0; i < 3; i++ {
		if g.Vertices[i][2] != 0 {
			t.Errorf("bottom vertex %d at z=%f, want 0", i, g.Vertices[i][2])
		}
		if g.Vertices[i+3][2] != 12 {
			t.Errorf("top vertex %d at z=%f, want 12", i, g.Vertices[i+3][2])
		}
	}
}

func TestBuildingOnSlopeSitsAtLowestGround(t *testing.T) {
	reporter := diag.New()
	grid := terrain.NewGrid(testBox(), 20)
	for i := 0; i < grid.Rows(); i++ {
		for j := 0; j < grid.Cols(); j++ {
			grid.SetNode(i, j, float64(i)*2) // south-to-north slope
		}
	}
	b := NewBuilder(grid, reporter)

	g, ok := b.building(osm.Feature{Kind: osm.Building, Points: triangle(0, 0), Height: 9})
	if !ok {
		t.Fatal("valid footprint rejected")
	}

	base := g.Vertices[0][2]
	for _, v := range g.Vertices[:3] {
		if v[2] != base {
			t.Fatalf("uneven building base: %f vs %f", v[2], base)
		}
	}

	// The base must not float above the lowest footprint corner.
	for _, p := range triangle(0, 0)[:3] {
		x, y := grid.Projector().Project(p.Lat, p.Lon)
		if ground := grid.HeightAt(x, y); base > ground+1e-9 {
			t.Fatalf("base %f floats above ground sample %f", base, ground)
		}
	}
}

func TestDegenerateBuildingSkipped(t *testing.T) {
	b, reporter := flatBuilder()

	_, ok := b.building(osm.Feature{
		Kind:   osm.Building,
		Points: []geo.LatLon{{Lat: 48.8570, Lon: 2.2910}, {Lat: 48.8571, Lon: 2.2911}},
		Height: 9,
	})
	if ok {
		t.Fatal("two-vertex footprint must be skipped")
	}
	if len(reporter.Warnings()) != 1 {
		t.Errorf("warnings = %d, want 1 for the skipped footprint", len(reporter.Warnings()))
	}
}

func TestDegenerateFeaturesNeverAbortBatch(t *testing.T) {
	b, reporter := flatBuilder()

	features := []osm.Feature{
		{Kind: osm.Building, Points: triangle(0, 0)[:1], Height: 9},
		{Kind: osm.Road, Class: "residential", Width: 4, Sidewalks: true,
			Points: []geo.LatLon{{Lat: 48.8570, Lon: 2.2905}}},
		{Kind: osm.Water, Points: triangle(0, 0)[:2]},
		{Kind: osm.Building, Points: triangle(0.0005, 0), Height: 9},
	}

	scene := b.Build(features)
	counts := classCount(scene)

	if counts[ClassBuilding] != 1 {
		t.Errorf("buildings = %d, want 1 surviving", counts[ClassBuilding])
	}
	if counts[ClassRoad] != 0 || counts[ClassWater] != 0 {
		t.Errorf("degenerate road/water synthesized: %v", counts)
	}
	if len(reporter.Warnings()) != 3 {
		t.Errorf("warnings = %d, want 3 skipped features", len(reporter.Warnings()))
	}
}

func TestSidewalkOffsetsAreParallel(t *testing.T) {
	b, _ := flatBuilder()

	// A straight west-to-east residential road.
	f := osm.Feature{
		Kind: osm.Road, Class: "residential", Width: 4, Sidewalks: true,
		Points: []geo.LatLon{
			{Lat: 48.8580, Lon: 2.2910},
			{Lat: 48.8580, Lon: 2.2930},
		},
	}

	name := func(string) string { return "" }
	out := b.road(f, name)
	if len(out) != 3 {
		t.Fatalf("geometries = %d, want road + 2 sidewalks", len(out))
	}

	_, roadY := b.proj.Project(48.8580, 2.2910)
	wantOffset := 4.0/2 + sidewalkWidth/2 // 2.75 m from the centerline

	var centers []float64
	for _, g := range out[1:] {
		sum := 0.0
		for _, v := range g.Vertices {
			sum += v[1]
		}
		centers = append(centers, sum/float64(len(g.Vertices)))
	}

	if math.Abs(centers[0]-(roadY-wantOffset)) > 1e-6 ||
		math.Abs(centers[1]-(roadY+wantOffset)) > 1e-6 {
		t.Errorf("sidewalk centerlines at %v, want %f either side of y=%f",
			centers, wantOffset, roadY)
	}
}

func TestMotorwayGetsNoSidewalks(t *testing.T) {
	b, _ := flatBuilder()

	f := osm.Feature{
		Kind: osm.Road, Class: "motorway", Width: 10, Sidewalks: false,
		Points: []geo.LatLon{
			{Lat: 48.8570, Lon: 2.2910},
			{Lat: 48.8590, Lon: 2.2930},
		},
	}

	out := b.road(f, func(string) string { return "" })
	if len(out) != 1 {
		t.Fatalf("geometries = %d, want the carriageway only", len(out))
	}
}

func TestWaterIsFlat(t *testing.T) {
	b, _ := flatBuilder()

	g, ok := b.water(osm.Feature{Kind: osm.Water, Points: triangle(0, 0)})
	if !ok {
		t.Fatal("valid polygon rejected")
	}
	if len(g.Vertices) != 3 {
		t.Fatalf("vertices = %d, want 3 after ring closing vertex dropped", len(g.Vertices))
	}
	if len(g.Faces) != 1 {
		t.Fatalf("faces = %d, want 1 fan triangle", len(g.Faces))
	}
	for _, v := range g.Vertices {
		if math.Abs(v[2]-waterLift) > 1e-9 {
			t.Errorf("water vertex at z=%f, want %f", v[2], waterLift)
		}
	}
}

func TestTreeRowSamplesAlternateVertices(t *testing.T) {
	b, _ := flatBuilder()

	row := osm.Feature{
		Kind: osm.TreeRow,
		Points: []geo.LatLon{
			{Lat: 48.8570, Lon: 2.2910},
			{Lat: 48.8572, Lon: 2.2912},
			{Lat: 48.8574, Lon: 2.2914},
			{Lat: 48.8576, Lon: 2.2916},
			{Lat: 48.8578, Lon: 2.2918},
		},
	}

	out := b.trees(row, func(string) string { return "" })

	// Vertices 0, 2, 4: three trees, each a trunk and a canopy.
	if len(out) != 6 {
		t.Fatalf("geometries = %d, want 6 for 3 trees", len(out))
	}

	counts := classCount(out)
	if counts[ClassTrunk] != 3 || counts[ClassCanopy] != 3 {
		t.Errorf("trunks/canopies = %d/%d, want 3/3", counts[ClassTrunk], counts[ClassCanopy])
	}
}

func TestPointTreeGeometry(t *testing.T) {
	b, _ := flatBuilder()

	out := b.trees(osm.Feature{
		Kind:   osm.TreePoint,
		Points: []geo.LatLon{{Lat: 48.8570, Lon: 2.2910}},
	}, func(string) string { return "" })

	if len(out) != 2 {
		t.Fatalf("geometries = %d, want trunk + canopy", len(out))
	}

	trunk := out[0]
	if len(trunk.Vertices) != 12 || len(trunk.Faces) != 6 {
		t.Errorf("trunk = %d vertices / %d faces, want 12/6",
			len(trunk.Vertices), len(trunk.Faces))
	}
	for _, v := range trunk.Vertices[:6] {
		if v[2] != 0 {
			t.Errorf("trunk base at z=%f, want ground level 0", v[2])
		}
	}

	canopy := out[1]
	if len(canopy.Vertices) != 48 {
		t.Errorf("canopy vertices = %d, want 48", len(canopy.Vertices))
	}
}

func TestEmptyFeatureSetYieldsTerrainOnly(t *testing.T) {
	b, _ := flatBuilder()

	scene := b.Build(nil)
	if len(scene) != 1 || scene[0].Class != ClassTerrain {
		t.Fatalf("scene = %d geometries, want terrain only", len(scene))
	}
}
