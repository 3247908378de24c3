package meshadder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ehsanMa86/OpenFOAM-dev/decomposition"
	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
	"github.com/ehsanMa86/OpenFOAM-dev/meshadder"
)

func TestMergeKeepsNonConformalProcessorCyclics(t *testing.T) {
	m := mesh.MustBox("box", 3, 2, 2, r3.Vec{}, r3.Vec{X: 3, Y: 2, Z: 2})
	mesh.AddNonConformalCyclic(m, "ncc", "zMin", "zMax", 1)
	// Bottom layer on processor 1, top layer on processor 0
	ps, _, err := decomposition.DecomposeMesh(m, []int{1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0}, 2)
	require.NoError(t, err)
	proc0, proc1 := ps.Meshes[0], ps.Meshes[1]

	merged, am, err := meshadder.Merge(proc0, proc1, meshadder.AddOptions{})
	require.NoError(t, err)
	require.NoError(t, merged.Check())

	var total int
	for _, name := range []string{
		mesh.ProcessorPatchName(0, 1, "ncc_zMax"),
		mesh.ProcessorPatchName(1, 0, "ncc_zMin"),
	} {
		pi := merged.FindPatch(name)
		require.NotEqual(t, -1, pi, "patch %s was dropped", name)
		p := merged.Patches[pi]
		assert.Equal(t, 0, p.Size)
		assert.Len(t, p.PolyFaces, 6, name)
		total += p.NumNonConformalFaces()
	}
	assert.Equal(t, 12, total)

	// Every source face of the kept patches lands on a merged face
	for pi := range proc0.Patches {
		if n := proc0.Patches[pi].NumNonConformalFaces(); n > 0 && am.PatchMap0[pi] != -1 {
			assert.Len(t, am.NCFaceMap0[pi], n)
		}
	}
	for pi := range proc1.Patches {
		if n := proc1.Patches[pi].NumNonConformalFaces(); n > 0 && am.PatchMap1[pi] != -1 {
			assert.Len(t, am.NCFaceMap1[pi], n)
		}
	}
}
