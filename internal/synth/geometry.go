// Package synth converts acquired map features into terrain-following
// polyhedral geometry. It produces plain vertex/face records; turning
// them into renderable objects is the authoring environment's job.
package synth

// Material classes understood by the authoring environment.
const (
	ClassTerrain  = "terrain"
	ClassBuilding = "building"
	ClassRoad     = "road"
	ClassSidewalk = "sidewalk"
	ClassWater    = "water"
	ClassTrunk    = "tree_trunk"
	ClassCanopy   = "tree_canopy"
)

// Geometry is one synthesized mesh: a vertex list in local meters and
// faces indexing into it. Handed across the authoring boundary as-is.
type Geometry struct {
	Name     string       `json:"name"`
	Class    string       `json:"class"`
	Vertices [][3]float64 `json:"vertices"`
	Faces    [][]int      `json:"faces"`
}

// Vertical lifts keep flat overlays from z-fighting with the terrain
// mesh: roads sit 5 cm above ground, sidewalks 10 cm above roads.
const (
	roadLift     = 0.05
	sidewalkLift = 0.15
	waterLift    = 0.05
)
