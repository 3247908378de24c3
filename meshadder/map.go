package meshadder

import "github.com/ehsanMa86/OpenFOAM-dev/utils"

// AddedMap records where the entities of the two merged meshes went. Entry
// -1 marks an entity that has no image, e.g. a dropped processor patch.
type AddedMap struct {
	NPoints int
	NFaces  int
	NCells  int

	PointMap0, PointMap1 utils.Index
	FaceMap0, FaceMap1   utils.Index
	CellMap0, CellMap1   utils.Index
	PatchMap0, PatchMap1 utils.Index

	OldPatchStarts0, OldPatchStarts1 utils.Index
	OldPatchSizes0, OldPatchSizes1   utils.Index

	// Per old patch, the position of each of its non-conformal faces in the
	// PolyFaces list of the merged patch
	NCFaceMap0, NCFaceMap1 []utils.Index

	// Coupled faces of the second mesh become internal faces wound as the
	// master face, so their orientation is reversed
	FlipFaceMap1 []bool
}

// AddedPoints returns, per merged point, the source point in mesh 0 and mesh
// 1, or -1
func (am *AddedMap) AddedPoints() (from0, from1 utils.Index) {
	return invertFirst(am.PointMap0, am.NPoints), invertFirst(am.PointMap1, am.NPoints)
}

// AddedFaces returns, per merged face, the source face in each mesh, or -1
func (am *AddedMap) AddedFaces() (from0, from1 utils.Index) {
	return am.FaceMap0.Invert(am.NFaces), am.FaceMap1.Invert(am.NFaces)
}

// invertFirst inverts a map that may be many-to-one, keeping the first
// source of each target
func invertFirst(m utils.Index, n int) (r utils.Index) {
	r = utils.NewFilled(n, -1)
	for old, val := range m {
		if val >= 0 && r[val] == -1 {
			r[val] = old
		}
	}
	return
}
