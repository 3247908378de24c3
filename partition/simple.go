package partition

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
	"github.com/ehsanMa86/OpenFOAM-dev/utils"
)

// Simple cuts the domain into N[0] slabs along x, each of those into N[1]
// along y and each of those into N[2] along z, with equal cell counts per
// slab. Partition (i, j, k) is i + N[0]*(j + N[1]*k).
type Simple struct {
	N [3]int
}

func (s *Simple) Name() string       { return "simple" }
func (s *Simple) NumPartitions() int { return s.N[0] * s.N[1] * s.N[2] }

func (s *Simple) Decompose(m *mesh.PolyMesh) (cellProc []int, err error) {
	for d, n := range s.N {
		if n < 1 {
			return nil, fmt.Errorf("simple decomposition needs at least one slab in direction %d, have %d", d, n)
		}
	}
	var (
		cc     = m.CellCentres()
		nCells = len(cc)
		slab   = make([][3]int, nCells)
		groups = []utils.Index{utils.Identity(nCells)}
	)
	component := func(v r3.Vec, d int) float64 {
		return [3]float64{v.X, v.Y, v.Z}[d]
	}
	for d := 0; d < 3; d++ {
		var next []utils.Index
		for _, g := range groups {
			var (
				vals = make([]float64, len(g))
				inds = make([]int, len(g))
				pm   = utils.NewPartitionMap(s.N[d], len(g))
			)
			for k, c := range g {
				vals[k] = component(cc[c], d)
			}
			floats.ArgsortStable(vals, inds)
			for b := 0; b < s.N[d]; b++ {
				kMin, kMax := pm.GetBucketRange(b)
				sub := make(utils.Index, 0, kMax-kMin)
				for k := kMin; k < kMax; k++ {
					c := g[inds[k]]
					slab[c][d] = b
					sub = append(sub, c)
				}
				next = append(next, sub)
			}
		}
		groups = next
	}
	cellProc = make([]int, nCells)
	for c := range cellProc {
		cellProc[c] = slab[c][0] + s.N[0]*(slab[c][1]+s.N[1]*slab[c][2])
	}
	return
}
