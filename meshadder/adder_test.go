package meshadder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
	"github.com/ehsanMa86/OpenFOAM-dev/utils"
)

func unitCube(name string, x0 float64) *mesh.PolyMesh {
	return mesh.MustBox(name, 1, 1, 1, r3.Vec{X: x0}, r3.Vec{X: x0 + 1, Y: 1, Z: 1})
}

func patchFaces(m *mesh.PolyMesh, name string) (faces []int) {
	p := m.Patches[m.FindPatch(name)]
	for f := p.Start; f < p.End(); f++ {
		faces = append(faces, f)
	}
	return
}

func coupleOn(t *testing.T, m0, m1 *mesh.PolyMesh, masterPatch, slavePatch string) *FaceCoupleInfo {
	fc, err := NewFaceCoupleInfo(m0, m1, patchFaces(m0, masterPatch), patchFaces(m1, slavePatch), 1e-6)
	require.NoError(t, err)
	return fc
}

// checkMerged verifies the properties every merge result must have
func checkMerged(t *testing.T, m0, m1, merged *mesh.PolyMesh, am *AddedMap) {
	t.Helper()
	require.NoError(t, merged.Check())
	cc := merged.CellCentres()
	for f := range merged.Faces {
		d := r3.Sub(merged.FaceCentre(f), cc[merged.Owner[f]])
		assert.Greater(t, r3.Dot(merged.FaceAreaVector(f), d), 0., "face %d points into its owner", f)
	}
	for _, fm := range []utils.Index{am.FaceMap0, am.FaceMap1, am.CellMap0, am.CellMap1} {
		seen := make(map[int]bool)
		for _, v := range fm {
			if v >= 0 {
				assert.False(t, seen[v], "map is not injective at %d", v)
				seen[v] = true
			}
		}
	}
	for p, np := range am.PointMap0 {
		assert.Equal(t, m0.Points[p], merged.Points[np])
	}
	for q, nq := range am.PointMap1 {
		assert.InDelta(t, 0., r3.Norm(r3.Sub(m1.Points[q], merged.Points[nq])), 1e-12)
	}
	// Faces keep their points through the maps, up to orientation
	for f, nf := range am.FaceMap0 {
		assert.ElementsMatch(t, utils.Index(m0.Faces[f]).Renumber(am.PointMap0), merged.Faces[nf])
	}
	for f, nf := range am.FaceMap1 {
		assert.ElementsMatch(t, utils.Index(m1.Faces[f]).Renumber(am.PointMap1), merged.Faces[nf])
	}
}

func TestAddTwoHexes(t *testing.T) {
	a, b := unitCube("a", 0), unitCube("b", 1)
	fc := coupleOn(t, a, b, "xMax", "xMin")
	require.Len(t, fc.CoupleToMasterPoints(), 4)

	merged, am, err := Add(a, b, fc, AddOptions{})
	require.NoError(t, err)
	checkMerged(t, a, b, merged, am)

	assert.Equal(t, 2, merged.NCells())
	assert.Equal(t, 11, merged.NFaces())
	assert.Equal(t, 1, merged.NInternalFaces())
	assert.Equal(t, 12, merged.NPoints())
	assert.Equal(t, mesh.BoxPatchNames[:], merged.PatchNames())
	for _, name := range []string{"xMin", "xMax"} {
		assert.Equal(t, 1, merged.Patches[merged.FindPatch(name)].Size)
	}
	for _, name := range []string{"yMin", "yMax", "zMin", "zMax"} {
		assert.Equal(t, 2, merged.Patches[merged.FindPatch(name)].Size)
	}
	// Coupled points come first
	for g := 0; g < 4; g++ {
		assert.Equal(t, 1., merged.Points[g].X)
	}
	assert.Equal(t, 0, merged.Owner[0])
	assert.Equal(t, 1, merged.Neighbour[0])
	assert.True(t, am.FlipFaceMap1[patchFaces(b, "xMin")[0]])

	// Inputs are untouched
	assert.Equal(t, 6, a.NFaces())
	assert.Equal(t, 6, b.NFaces())
}

func TestAddReordersFaces(t *testing.T) {
	a := mesh.MustBox("a", 2, 2, 1, r3.Vec{}, r3.Vec{X: 2, Y: 2, Z: 1})
	b := mesh.MustBox("b", 1, 2, 1, r3.Vec{X: 2}, r3.Vec{X: 3, Y: 2, Z: 1})
	merged, am, err := Add(a, b, coupleOn(t, a, b, "xMax", "xMin"), AddOptions{})
	require.NoError(t, err)
	checkMerged(t, a, b, merged, am)

	assert.Equal(t, 6, merged.NCells())
	assert.Equal(t, 24, merged.NPoints())
	assert.Equal(t, []int{0, 0, 1, 1, 2, 3, 4}, merged.Owner[:merged.NInternalFaces()])
	assert.Equal(t, []int{1, 2, 3, 4, 3, 5, 5}, merged.Neighbour)
}

func TestMergeWithoutCoupling(t *testing.T) {
	a, b := unitCube("a", 0), unitCube("b", 5)
	merged, am, err := Merge(a, b, AddOptions{})
	require.NoError(t, err)
	checkMerged(t, a, b, merged, am)
	assert.Equal(t, 2, merged.NCells())
	assert.Equal(t, 12, merged.NFaces())
	assert.Equal(t, 16, merged.NPoints())
	for pi := range merged.Patches {
		assert.Equal(t, 2, merged.Patches[pi].Size)
	}
}

func TestAddPatchNameClash(t *testing.T) {
	a, b := unitCube("a", 0), unitCube("b", 1)
	b.Patches[b.FindPatch("xMax")].Kind = mesh.KindWall
	merged, am, err := Add(a, b, coupleOn(t, a, b, "xMax", "xMin"), AddOptions{})
	require.NoError(t, err)
	checkMerged(t, a, b, merged, am)
	require.NotEqual(t, -1, merged.FindPatch("xMax_b"))
	assert.Equal(t, mesh.KindWall, merged.Patches[merged.FindPatch("xMax_b")].Kind)
	// The coupled-away xMax of a is an ordinary patch and stays, empty
	assert.Equal(t, 0, merged.Patches[merged.FindPatch("xMax")].Size)
	assert.Equal(t, 7, len(merged.Patches))
}

func TestAddDropsEmptyProcessorPatches(t *testing.T) {
	a, b := unitCube("a", 0), unitCube("b", 1)
	pa := &a.Patches[a.FindPatch("xMax")]
	pa.Name, pa.Kind, pa.MyProc, pa.NeighbProc = mesh.ProcessorPatchName(0, 1, ""), mesh.KindProcessor, 0, 1
	pb := &b.Patches[b.FindPatch("xMin")]
	pb.Name, pb.Kind, pb.MyProc, pb.NeighbProc = mesh.ProcessorPatchName(1, 0, ""), mesh.KindProcessor, 1, 0

	merged, am, err := Add(a, b, coupleOn(t, a, b, "procBoundary0to1", "procBoundary1to0"), AddOptions{})
	require.NoError(t, err)
	checkMerged(t, a, b, merged, am)
	assert.Equal(t, []string{"xMin", "yMin", "yMax", "zMin", "zMax", "xMax"}, merged.PatchNames())
	assert.Equal(t, -1, am.PatchMap0[1])
	assert.Equal(t, -1, am.PatchMap1[0])
	assert.Equal(t, 5, am.PatchMap1[1])
}

func TestAddZones(t *testing.T) {
	a, b := unitCube("a", 0), unitCube("b", 1)
	fa, fb := patchFaces(a, "xMax")[0], patchFaces(b, "xMin")[0]
	a.CellZones = mesh.ZoneList{{Name: "cells", Indices: []int{0}}}
	b.CellZones = mesh.ZoneList{{Name: "cells", Indices: []int{0}}, {Name: "onlyB", Indices: []int{0}}}
	a.FaceZones = mesh.ZoneList{{Name: "a-side", Indices: []int{fa}, FlipMap: []bool{false}}}
	b.FaceZones = mesh.ZoneList{{Name: "b-side", Indices: []int{fb}, FlipMap: []bool{false}}}
	var sharedA, sharedB []int
	for p, pt := range a.Points {
		if pt.X == 1 {
			sharedA = append(sharedA, p)
		}
	}
	for p, pt := range b.Points {
		if pt.X == 1 {
			sharedB = append(sharedB, p)
		}
	}
	a.PointZones = mesh.ZoneList{{Name: "shared", Indices: sharedA}}
	b.PointZones = mesh.ZoneList{{Name: "shared", Indices: sharedB}}

	merged, am, err := Add(a, b, coupleOn(t, a, b, "xMax", "xMin"), AddOptions{})
	require.NoError(t, err)
	checkMerged(t, a, b, merged, am)

	assert.Equal(t, []string{"cells", "onlyB"}, merged.CellZones.Names())
	assert.Equal(t, []int{0, 1}, merged.CellZones.Find("cells").Indices)
	assert.Equal(t, []int{1}, merged.CellZones.Find("onlyB").Indices)
	assert.Equal(t, []int{0, 1, 2, 3}, merged.PointZones.Find("shared").Indices)

	// The physical normal of each zone face survives the merge
	physical := func(m *mesh.PolyMesh, z *mesh.Zone, k int) r3.Vec {
		n := m.FaceAreaVector(z.Indices[k])
		if z.FlipMap[k] {
			n = r3.Scale(-1, n)
		}
		return n
	}
	before := physical(a, a.FaceZones.Find("a-side"), 0)
	assert.Equal(t, before, physical(merged, merged.FaceZones.Find("a-side"), 0))
	beforeB := physical(b, b.FaceZones.Find("b-side"), 0)
	afterB := physical(merged, merged.FaceZones.Find("b-side"), 0)
	assert.InDelta(t, 0., r3.Norm(r3.Sub(beforeB, afterB)), 1e-12)
	assert.Equal(t, []bool{true}, merged.FaceZones.Find("b-side").FlipMap)
}

func TestAddCoupleErrors(t *testing.T) {
	a, b := unitCube("a", 0), unitCube("b", 1)
	t.Run("points too far apart", func(t *testing.T) {
		_, err := NewFaceCoupleInfo(a, b, patchFaces(a, "xMax"), patchFaces(b, "xMax"), 1e-6)
		assert.ErrorIs(t, err, ErrCoupleMismatch)
	})
	t.Run("face count mismatch", func(t *testing.T) {
		_, err := NewFaceCoupleInfo(a, b, patchFaces(a, "xMax"), nil, 1e-6)
		assert.ErrorIs(t, err, ErrCoupleMismatch)
	})
	t.Run("internal face", func(t *testing.T) {
		s := mesh.StripMesh(2)
		_, err := NewFaceCoupleInfo(s, b, []int{0}, patchFaces(b, "xMin"), 1e-6)
		assert.ErrorIs(t, err, ErrCoupleMismatch)
	})
	t.Run("empty point group", func(t *testing.T) {
		fc := coupleOn(t, a, b, "xMax", "xMin")
		bad := &StaticCoupleInfo{
			Master:       fc.MasterFaces(),
			Slave:        fc.SlaveFaces(),
			MasterPoints: fc.CoupleToMasterPoints(),
			SlavePoints:  append([][]int{{}}, fc.CoupleToSlavePoints()[1:]...),
			Faces:        [][]int{fc.CoupleFace(0)},
		}
		_, _, err := Add(a, b, bad, AddOptions{})
		assert.ErrorIs(t, err, ErrCoupleMismatch)
	})
	t.Run("point count mismatch", func(t *testing.T) {
		fc := coupleOn(t, a, b, "xMax", "xMin")
		bad := &StaticCoupleInfo{
			Master:       fc.MasterFaces(),
			Slave:        fc.SlaveFaces(),
			MasterPoints: fc.CoupleToMasterPoints(),
			SlavePoints:  fc.CoupleToSlavePoints(),
			Faces:        [][]int{fc.CoupleFace(0)[:3]},
		}
		_, _, err := Add(a, b, bad, AddOptions{})
		assert.ErrorIs(t, err, ErrCoupleMismatch)
	})
}

func TestFaceOrder(t *testing.T) {
	owner := []int{0, 0, 1, 2}
	neighbour := []int{2, 1, 2}
	assert.Equal(t, utils.Index{1, 0, 2, 3}, FaceOrder(owner, neighbour, 3))
	// Ties keep their order
	assert.Equal(t, utils.Index{0, 1, 2}, FaceOrder([]int{0, 0, 1}, []int{1, 1}, 2))
}

func TestMergeZonesOverflow(t *testing.T) {
	zones0 := mesh.ZoneList{{Name: "a", Indices: []int{0, 1}}, {Name: "b", Indices: []int{1}}}
	zones1 := mesh.ZoneList{{Name: "b", Indices: []int{0}}, {Name: "c", Indices: []int{1}}}
	merged := MergeZones(4,
		ZoneSide{Zones: zones0, Map: utils.Index{3, 2}},
		ZoneSide{Zones: zones1, Map: utils.Index{2, 0}})
	assert.Equal(t, []string{"a", "b", "c"}, merged.Names())
	assert.Equal(t, []int{2, 3}, merged.Find("a").Indices)
	assert.Equal(t, []int{2}, merged.Find("b").Indices)
	assert.Equal(t, []int{0}, merged.Find("c").Indices)
	assert.Nil(t, merged.Find("a").FlipMap)
}
