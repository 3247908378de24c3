package decomposition

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
	"github.com/ehsanMa86/OpenFOAM-dev/mesh/files"
	"github.com/ehsanMa86/OpenFOAM-dev/partition"
)

func newCase(t *testing.T, nProcs int) (dir string, cfg Config) {
	dir = t.TempDir()
	return dir, Config{CaseDir: dir, NProcs: nProcs, Strategy: SortStrategy, Logger: quietLogger()}
}

func writeComplete(t *testing.T, dir, instance string, m *mesh.PolyMesh) {
	require.NoError(t, files.WritePolyMesh(files.MeshDir(dir, instance, ""), m))
}

func shifted(m *mesh.PolyMesh, by r3.Vec) *mesh.PolyMesh {
	r := m.Clone()
	for i := range r.Points {
		r.Points[i] = r3.Add(r.Points[i], by)
	}
	return r
}

func TestReadDecompose(t *testing.T) {
	dir, cfg := newCase(t, 2)
	cellProc := []int{0, 0, 0, 1, 1, 1, 0, 0, 0, 1, 1, 1}
	writeComplete(t, dir, files.Constant, fullBox())
	method := &partition.Manual{NProcs: 2, CellProc: cellProc}

	d := NewDomainDecomposition(cfg)
	decomposed, err := d.ReadDecompose(method)
	require.NoError(t, err)
	assert.True(t, decomposed)
	assert.Equal(t, Decomposed, d.State())
	assert.Equal(t, files.Constant, d.ProcsInstance())
	require.NoError(t, d.WriteProcs(d.ProcsInstance()))

	written, err := files.ReadLabelList(filepath.Join(dir, files.Constant), cellProcObject)
	require.NoError(t, err)
	assert.Equal(t, cellProc, written)

	// Processor meshes on disk are as new as the complete mesh
	d2 := NewDomainDecomposition(cfg)
	decomposed, err = d2.ReadDecompose(method)
	require.NoError(t, err)
	assert.False(t, decomposed)
	assert.Equal(t, ReadProcessors, d2.State())
	assert.Equal(t, d.ProcFaceAddressing(), d2.ProcFaceAddressing())
	assert.Equal(t, d.ProcCellAddressing(), d2.ProcCellAddressing())
	assert.Equal(t, d.ProcBoundaryAddressing(), d2.ProcBoundaryAddressing())
	assert.Equal(t, cellProc, d2.CellProc())
	for p, pm := range d2.ProcMeshes() {
		assert.Equal(t, d.ProcMeshes()[p].PatchNames(), pm.PatchNames())
		assert.Equal(t, d.ProcMeshes()[p].NCells(), pm.NCells())
	}

	// A newer complete mesh makes the processors stale
	writeComplete(t, dir, "1", fullBox())
	d3 := NewDomainDecomposition(cfg)
	decomposed, err = d3.ReadDecompose(method)
	require.NoError(t, err)
	assert.True(t, decomposed)
	assert.Equal(t, "1", d3.ProcsInstance())
}

func TestReadReconstruct(t *testing.T) {
	dir, cfg := newCase(t, 0)
	m := fullBox()
	ps, _, err := DecomposeMesh(m, []int{0, 1, 2, 0, 1, 2, 0, 1, 2, 0, 1, 2}, 3)
	require.NoError(t, err)
	writer := NewDomainDecomposition(cfg)
	writer.SetProcs(ps, files.Constant)
	require.NoError(t, writer.WriteProcs(files.Constant))

	d := NewDomainDecomposition(cfg)
	reconstructed, err := d.ReadReconstruct()
	require.NoError(t, err)
	assert.True(t, reconstructed)
	assert.Equal(t, 3, d.NProcs())
	assert.Equal(t, m.NCells(), d.CompleteMesh().NCells())
	assert.Equal(t, m.NFaces(), d.CompleteMesh().NFaces())
	assert.Equal(t, m.PatchNames(), d.CompleteMesh().PatchNames())
	assert.Equal(t, filepath.Base(dir), d.CompleteMesh().Name)
	require.NoError(t, d.CheckConsistency())
	require.NoError(t, d.WriteComplete(d.CompleteInstance()))
	require.NoError(t, d.WriteAddressing(d.ProcsInstance()))

	d2 := NewDomainDecomposition(cfg)
	reconstructed, err = d2.ReadReconstruct()
	require.NoError(t, err)
	assert.False(t, reconstructed)
	assert.Equal(t, ReadProcessors, d2.State())
	assert.Equal(t, d.CompleteMesh().NPoints(), d2.CompleteMesh().NPoints())
	assert.Equal(t, d.ProcCellAddressing(), d2.ProcCellAddressing())

	// Moved processor points are carried into the complete mesh
	before := append([]r3.Vec(nil), d.CompleteMesh().Points...)
	by := r3.Vec{X: 0.25}
	for p, pm := range d.ProcMeshes() {
		require.NoError(t, files.WritePolyMesh(
			files.MeshDir(files.ProcessorDir(dir, p), "1", ""), shifted(pm, by)))
	}
	state, err := d.ReadUpdateReconstruct()
	require.NoError(t, err)
	assert.Equal(t, UpdatePointsMoved, state)
	assert.Equal(t, Updated, d.State())
	assert.Equal(t, "1", d.CompleteInstance())
	for i, pt := range d.CompleteMesh().Points {
		assert.Equal(t, r3.Add(before[i], by), pt)
	}

	state, err = d.ReadUpdateReconstruct()
	require.NoError(t, err)
	assert.Equal(t, UpdateUnchanged, state)
}

func TestReadUpdateDecompose(t *testing.T) {
	dir, cfg := newCase(t, 2)
	m := fullBox()
	writeComplete(t, dir, files.Constant, m)
	method := &partition.Simple{N: [3]int{2, 1, 1}}

	d := NewDomainDecomposition(cfg)
	_, err := d.ReadDecompose(method)
	require.NoError(t, err)

	state, err := d.ReadUpdateDecompose(method)
	require.NoError(t, err)
	assert.Equal(t, UpdateUnchanged, state)

	by := r3.Vec{Z: -1}
	writeComplete(t, dir, "1", shifted(m, by))
	state, err = d.ReadUpdateDecompose(method)
	require.NoError(t, err)
	assert.Equal(t, UpdatePointsMoved, state)
	assert.Equal(t, Updated, d.State())
	assert.Equal(t, "1", d.ProcsInstance())
	for p, pm := range d.ProcMeshes() {
		for lp, gp := range d.ProcPointAddressing()[p] {
			assert.Equal(t, r3.Add(m.Points[gp], by), pm.Points[lp])
		}
	}

	writeComplete(t, dir, "2", box(4, 1, 1))
	state, err = d.ReadUpdateDecompose(method)
	require.NoError(t, err)
	assert.Equal(t, UpdateTopoChanged, state)
	assert.Equal(t, "2", d.ProcsInstance())
	assert.Equal(t, 4, d.CompleteMesh().NCells())
	total := 0
	for _, pm := range d.ProcMeshes() {
		total += pm.NCells()
	}
	assert.Equal(t, 4, total)
}

func TestProcCountMismatch(t *testing.T) {
	dir, cfg := newCase(t, 2)
	ps, _, err := DecomposeMesh(box(2, 1, 1), []int{0, 1}, 2)
	require.NoError(t, err)
	writer := NewDomainDecomposition(cfg)
	writer.SetProcs(ps, files.Constant)
	require.NoError(t, writer.WriteProcs(files.Constant))

	cfg.NProcs = 3
	d := NewDomainDecomposition(cfg)
	assert.ErrorIs(t, d.ReadProcs(), ErrProcCountMismatch)

	_, err = NewDomainDecomposition(cfg).ReadDecompose(&partition.Manual{NProcs: 3})
	assert.ErrorIs(t, err, ErrNoCompleteMesh)

	writeComplete(t, dir, files.Constant, box(2, 1, 1))
	d = NewDomainDecomposition(Config{CaseDir: dir, NProcs: 2, Logger: quietLogger()})
	require.NoError(t, d.ReadComplete())
	assert.ErrorIs(t, d.Decompose(&partition.Manual{NProcs: 3, CellProc: []int{0, 2}}), ErrProcCountMismatch)
}

func TestAccessorsBeforeLoad(t *testing.T) {
	_, cfg := newCase(t, 2)
	d := NewDomainDecomposition(cfg)
	assert.Equal(t, Unset, d.State())
	assert.Panics(t, func() { d.CompleteMesh() })
	assert.Panics(t, func() { d.ProcMeshes() })
	assert.Panics(t, func() { d.ProcFaceAddressing() })

	ps, _, err := DecomposeMesh(box(2, 1, 1), []int{0, 1}, 2)
	require.NoError(t, err)
	d.SetProcs(&ProcSet{Meshes: ps.Meshes}, files.Constant)
	assert.Len(t, d.ProcMeshes(), 2)
	assert.Panics(t, func() { d.ProcPointAddressing() })
	assert.Panics(t, func() { d.NonConformalProcFaceAddressing() })

	d.SetComplete(box(2, 1, 1), files.Constant)
	require.NoError(t, d.DecomposeWith([]int{1, 0}))
	assert.Len(t, d.NonConformalProcFaceAddressing(), len(d.CompleteMesh().Patches))
	assert.Equal(t, []int{1, 0}, d.CellProc())
}

func TestCheckConsistency(t *testing.T) {
	m := mesh.AddTestZones(mesh.StripMesh(4))
	ps, _, err := DecomposeMesh(m, []int{0, 0, 1, 1}, 2)
	require.NoError(t, err)
	consistent := func(complete *mesh.PolyMesh, procs *ProcSet) error {
		d := NewDomainDecomposition(Config{NProcs: 2, Logger: quietLogger()})
		d.SetComplete(complete, files.Constant)
		d.SetProcs(procs, files.Constant)
		return d.CheckConsistency()
	}
	require.NoError(t, consistent(m, ps))

	t.Run("extra complete point", func(t *testing.T) {
		c := m.Clone()
		c.Points = append(c.Points, r3.Vec{X: 10})
		assert.ErrorIs(t, consistent(c, ps), ErrInconsistent)
	})
	t.Run("point addressing out of range", func(t *testing.T) {
		c := m.Clone()
		c.Points = c.Points[:len(c.Points)-1]
		assert.ErrorIs(t, consistent(c, ps), ErrInconsistent)
	})
	t.Run("complete patch missing on processors", func(t *testing.T) {
		c := m.Clone()
		c.Patches = append(c.Patches, mesh.Patch{Name: "walls", Kind: mesh.KindWall, Start: c.NFaces()})
		assert.ErrorIs(t, consistent(c, ps), ErrInconsistent)
	})
	t.Run("no addressing skips points", func(t *testing.T) {
		c := m.Clone()
		c.Points = append(c.Points, r3.Vec{X: 10})
		assert.NoError(t, consistent(c, &ProcSet{Meshes: ps.Meshes}))
	})
}
