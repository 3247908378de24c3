package mesh

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestBoxMesh(t *testing.T) {
	tests := []struct {
		nx, ny, nz                         int
		nPoints, nFaces, nInternal, nCells int
	}{
		{1, 1, 1, 8, 6, 0, 1},
		{2, 1, 1, 12, 11, 1, 2},
		{4, 1, 1, 20, 21, 3, 4},
		{2, 2, 2, 27, 36, 12, 8},
	}
	for _, tt := range tests {
		m := MustBox("box", tt.nx, tt.ny, tt.nz, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
		require.NoError(t, m.Check())
		assert.Equal(t, tt.nPoints, m.NPoints())
		assert.Equal(t, tt.nFaces, m.NFaces())
		assert.Equal(t, tt.nInternal, m.NInternalFaces())
		assert.Equal(t, tt.nCells, m.NCells())
		assert.Equal(t, BoxPatchNames[:], m.PatchNames())
	}
}

func TestBoxMeshOrientation(t *testing.T) {
	m := MustBox("box", 2, 2, 1, r3.Vec{}, r3.Vec{X: 2, Y: 2, Z: 1})
	cc := m.CellCentres()
	for f := range m.Faces {
		sf := m.FaceAreaVector(f)
		d := r3.Sub(m.FaceCentre(f), cc[m.Owner[f]])
		assert.Greater(t, r3.Dot(sf, d), 0., "face %d points into its owner", f)
		assert.InDelta(t, 1., r3.Norm(sf), 1e-12)
	}
	sf := m.FaceAreaVector(m.Patches[m.FindPatch("xMin")].Start)
	assert.InDelta(t, -1., sf.X, 1e-12)
}

func TestCellsAndCellCells(t *testing.T) {
	m := StripMesh(4)
	cells := m.Cells()
	require.Len(t, cells, 4)
	for c := range cells {
		assert.Len(t, cells[c], 6)
	}
	assert.Equal(t, [][]int{{1}, {0, 2}, {1, 3}, {2}}, m.CellCells())
}

func TestWhichPatch(t *testing.T) {
	m := StripMesh(4)
	assert.Equal(t, -1, m.WhichPatch(0))
	for pi := range m.Patches {
		p := m.Patches[pi]
		for f := p.Start; f < p.End(); f++ {
			assert.Equal(t, pi, m.WhichPatch(f))
		}
	}
	assert.Equal(t, -1, m.FindPatch("nope"))
}

func TestCheckDetectsBrokenTopology(t *testing.T) {
	t.Run("owner above neighbour", func(t *testing.T) {
		m := StripMesh(3)
		m.Owner[0], m.Neighbour[0] = m.Neighbour[0], m.Owner[0]
		assert.ErrorIs(t, m.Check(), ErrFaceOrder)
	})
	t.Run("internal faces out of order", func(t *testing.T) {
		m := StripMesh(3)
		m.Faces[0], m.Faces[1] = m.Faces[1], m.Faces[0]
		m.Owner[0], m.Owner[1] = m.Owner[1], m.Owner[0]
		m.Neighbour[0], m.Neighbour[1] = m.Neighbour[1], m.Neighbour[0]
		assert.ErrorIs(t, m.Check(), ErrFaceOrder)
	})
	t.Run("two faces between the same cells", func(t *testing.T) {
		m := StripMesh(3)
		m.Owner[1], m.Neighbour[1] = m.Owner[0], m.Neighbour[0]
		assert.ErrorIs(t, m.Check(), ErrFaceOrder)
	})
	t.Run("patch gap", func(t *testing.T) {
		m := StripMesh(3)
		m.Patches[1].Start++
		assert.ErrorIs(t, m.Check(), ErrPatchLayout)
	})
	t.Run("duplicate patch name", func(t *testing.T) {
		m := StripMesh(3)
		m.Patches[1].Name = m.Patches[0].Name
		assert.ErrorIs(t, m.Check(), ErrDuplicateKey)
	})
	t.Run("bad zone", func(t *testing.T) {
		m := StripMesh(3)
		m.CellZones = ZoneList{{Name: "z", Indices: []int{0, 7}}}
		assert.Error(t, m.Check())
	})
	t.Run("cyclic size mismatch", func(t *testing.T) {
		m := StripMesh(3)
		m.Patches[0].Kind, m.Patches[0].NeighbourPatch = KindCyclic, "yMin"
		assert.Error(t, m.Check())
	})
}

func TestCyclicAndNonConformal(t *testing.T) {
	m := MakeCyclic(StripMesh(3), "yMin", "yMax")
	require.NoError(t, m.Check())
	assert.True(t, m.Conformal())

	AddNonConformalCyclic(m, "ncc", "zMin", "zMax", 1)
	AddNonConformalError(m, "nce", "xMin")
	require.NoError(t, m.Check())
	assert.False(t, m.Conformal())
	s := m.Stats()
	assert.Equal(t, 3, s.NonConformal["ncc_zMin"])
	assert.Equal(t, 1, s.NonConformal["nce"])
}

func TestReverseFace(t *testing.T) {
	assert.Equal(t, []int{0, 3, 2, 1}, ReverseFace([]int{0, 1, 2, 3}))
	assert.Equal(t, []int{}, ReverseFace([]int{}))
	m := MustBox("box", 1, 1, 1, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	a := m.FaceAreaVector(0)
	m.Faces[0] = ReverseFace(m.Faces[0])
	b := m.FaceAreaVector(0)
	assert.InDelta(t, 0., r3.Norm(r3.Add(a, b)), 1e-12)
}

func TestCloneIsDeep(t *testing.T) {
	m := AddTestZones(StripMesh(2))
	c := m.Clone()
	c.Faces[0][0] = 99
	c.Owner[0] = 5
	c.CellZones[0].Indices[0] = 3
	c.Patches[0].Name = "changed"
	assert.NotEqual(t, 99, m.Faces[0][0])
	assert.Equal(t, 0, m.Owner[0])
	assert.Equal(t, 0, m.CellZones[0].Indices[0])
	assert.Equal(t, "xMin", m.Patches[0].Name)
}

func TestReorderPatches(t *testing.T) {
	m := AddTestZones(StripMesh(2))
	m.FaceZones = append(m.FaceZones, Zone{Name: "outlet", Indices: []int{m.Patches[1].Start}})
	AddNonConformalError(m, "nce", "xMax")
	outletCentre := m.FaceCentre(m.Patches[1].Start)
	inFace, outFace := m.Patches[0].Start, m.Patches[1].Start
	m.FaceZones = append(m.FaceZones, Zone{Name: "ends",
		Indices: []int{inFace, outFace}, FlipMap: []bool{true, false}})

	names := []string{"nce", "zMax", "zMin", "yMax", "yMin", "xMax", "xMin"}
	r, faceMap, err := m.ReorderPatchesByName(names)
	require.NoError(t, err)
	require.NoError(t, r.Check())
	assert.Equal(t, names, r.PatchNames())
	assert.Equal(t, m.NFaces(), r.NFaces())
	for f := range m.Faces {
		assert.Equal(t, m.Faces[f], r.Faces[faceMap[f]])
		assert.Equal(t, m.Owner[f], r.Owner[faceMap[f]])
	}
	moved := r.FaceZones.Find("outlet").Indices[0]
	assert.Equal(t, outletCentre, r.FaceCentre(moved))
	// xMax now precedes xMin, the zone stays sorted and keeps its flips
	ends := r.FaceZones.Find("ends")
	require.NoError(t, r.FaceZones.CheckDefinition(r.NFaces()))
	assert.Equal(t, []int{faceMap[outFace], faceMap[inFace]}, ends.Indices)
	assert.Equal(t, []bool{false, true}, ends.FlipMap)
	assert.True(t, sort.IntsAreSorted(ends.Indices))
	assert.Equal(t, r.Patches[r.FindPatch("xMax")].Start, r.Patches[r.FindPatch("nce")].PolyFaces[0])

	_, _, err = m.ReorderPatchesByName(names[1:])
	assert.Error(t, err)
	_, _, err = m.ReorderPatchesByName(append([]string{"missing"}, names[1:]...))
	assert.Error(t, err)
	_, _, err = m.ReorderPatches([]int{0, 0, 1, 2, 3, 4, 5})
	assert.Error(t, err)
}

func TestPatchKindText(t *testing.T) {
	for k := KindPatch; k <= KindNonConformalError; k++ {
		parsed, err := ParsePatchKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	k, err := ParsePatchKind("ProcessorCyclic")
	require.NoError(t, err)
	assert.Equal(t, KindProcessorCyclic, k)
	assert.True(t, k.IsProcessor())
	assert.False(t, KindCyclic.IsProcessor())
	assert.True(t, KindNonConformalCyclic.IsCyclic())
	assert.True(t, KindNonConformalProcessorCyclic.IsNonConformal())
	_, err = ParsePatchKind("slidingInterface")
	assert.Error(t, err)
	assert.Equal(t, "procBoundary0to1throughcyc", ProcessorPatchName(0, 1, "cyc"))
}

func TestZoneCheckDefinition(t *testing.T) {
	zl := ZoneList{
		{Name: "a", Indices: []int{0, 2}},
		{Name: "b", Indices: []int{1}, FlipMap: []bool{true}},
	}
	assert.NoError(t, zl.CheckDefinition(3))
	assert.Error(t, zl.CheckDefinition(2))
	assert.Equal(t, [][]int{{0}, {1}, {0}}, zl.WhichZones(3))

	dup := append(zl.Clone(), Zone{Name: "a"})
	assert.Error(t, dup.CheckDefinition(3))
	repeat := ZoneList{{Name: "c", Indices: []int{1, 1}}}
	assert.Error(t, repeat.CheckDefinition(3))
	badFlip := ZoneList{{Name: "d", Indices: []int{1}, FlipMap: []bool{}}}
	assert.Error(t, badFlip.CheckDefinition(3))
}
