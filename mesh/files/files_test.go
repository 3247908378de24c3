package files

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
)

func TestPolyMeshRoundTrip(t *testing.T) {
	m := mesh.AddTestZones(mesh.MustBox("box", 3, 2, 1, r3.Vec{X: -1}, r3.Vec{X: 0.5, Y: 1.25, Z: 0.1}))
	mesh.MakeCyclic(m, "yMin", "yMax")
	mesh.AddNonConformalCyclic(m, "ncc", "zMin", "zMax", 2)
	m.Patches[0].Dict = map[string]interface{}{"inGroups": []interface{}{"inlet"}}

	dir := MeshDir(t.TempDir(), Constant, "")
	require.NoError(t, WritePolyMesh(dir, m))
	assert.True(t, HasPolyMesh(dir))

	r, err := ReadPolyMesh(dir, "box")
	require.NoError(t, err)
	assert.Equal(t, m.Points, r.Points)
	assert.Equal(t, m.Faces, r.Faces)
	assert.Equal(t, m.Owner, r.Owner)
	assert.Equal(t, m.Neighbour, r.Neighbour)
	assert.Equal(t, m.Patches, r.Patches)
	assert.Equal(t, m.PointZones, r.PointZones)
	assert.Equal(t, m.FaceZones, r.FaceZones)
	assert.Equal(t, m.CellZones, r.CellZones)
	assert.Equal(t, m.NCells(), r.NCells())
}

func TestReadPolyMeshMissing(t *testing.T) {
	_, err := ReadPolyMesh(filepath.Join(t.TempDir(), "nothing"), "x")
	assert.ErrorIs(t, err, ErrNoMesh)

	_, err = ReadLabelList(t.TempDir(), "cellProc")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLabelList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteLabelList(dir, "faceProcAddressing", []int{1, -2, 3}))
	l, err := ReadLabelList(dir, "faceProcAddressing")
	require.NoError(t, err)
	assert.Equal(t, []int{1, -2, 3}, l)
}

func TestInstances(t *testing.T) {
	caseDir := t.TempDir()
	m := mesh.StripMesh(2)
	for _, inst := range []string{"0.5", Constant, "10", "2"} {
		require.NoError(t, WritePolyMesh(MeshDir(caseDir, inst, ""), m))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(caseDir, "3"), 0755))      // no mesh
	require.NoError(t, os.MkdirAll(filepath.Join(caseDir, "system"), 0755)) // not an instance

	instances, err := MeshInstances(caseDir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{Constant, "0.5", "2", "10"}, instances)
	latest, err := LatestMeshInstance(caseDir, "")
	require.NoError(t, err)
	assert.Equal(t, "10", latest)

	_, err = LatestMeshInstance(t.TempDir(), "")
	assert.ErrorIs(t, err, ErrNoMesh)

	assert.True(t, InstanceLess(Constant, "0"))
	assert.True(t, InstanceLess("2", "10"))
	assert.False(t, InstanceLess("10", "2"))
}

func TestProcessorDirs(t *testing.T) {
	caseDir := t.TempDir()
	n, err := NumProcessorDirs(caseDir)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for p := 0; p < 3; p++ {
		require.NoError(t, os.MkdirAll(ProcessorDir(caseDir, p), 0755))
	}
	n, err = NumProcessorDirs(caseDir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, os.MkdirAll(ProcessorDir(caseDir, 5), 0755))
	_, err = NumProcessorDirs(caseDir)
	assert.Error(t, err)
	require.NoError(t, os.RemoveAll(ProcessorDir(caseDir, 5)))

	require.NoError(t, RemoveProcessorDirs(caseDir))
	n, err = NumProcessorDirs(caseDir)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
