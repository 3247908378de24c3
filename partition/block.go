package partition

import (
	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
	"github.com/ehsanMa86/OpenFOAM-dev/utils"
)

// Block splits the cells in index order into contiguous blocks
type Block struct {
	NProcs int
}

func (b *Block) Name() string       { return "block" }
func (b *Block) NumPartitions() int { return b.NProcs }

func (b *Block) Decompose(m *mesh.PolyMesh) ([]int, error) {
	return blocks(utils.Identity(m.NCells()), b.NProcs), nil
}

// blocks assigns order[k] to the bucket holding position k
func blocks(order utils.Index, nProcs int) (cellProc []int) {
	pm := utils.NewPartitionMap(nProcs, len(order))
	cellProc = make([]int, len(order))
	for p := 0; p < nProcs; p++ {
		kMin, kMax := pm.GetBucketRange(p)
		for k := kMin; k < kMax; k++ {
			cellProc[order[k]] = p
		}
	}
	return
}

// RoundRobin deals cells out to partitions in turn
type RoundRobin struct {
	NProcs int
}

func (r *RoundRobin) Name() string       { return "roundRobin" }
func (r *RoundRobin) NumPartitions() int { return r.NProcs }

func (r *RoundRobin) Decompose(m *mesh.PolyMesh) (cellProc []int, err error) {
	cellProc = make([]int, m.NCells())
	for c := range cellProc {
		cellProc[c] = c % r.NProcs
	}
	return
}

// Graph renumbers the cells breadth first over their face neighbours, which
// keeps connected cells together, then splits the new order into blocks
type Graph struct {
	NProcs int
}

func (g *Graph) Name() string       { return "graph" }
func (g *Graph) NumPartitions() int { return g.NProcs }

func (g *Graph) Decompose(m *mesh.PolyMesh) ([]int, error) {
	return blocks(BreadthFirstOrder(m.CellCells()), g.NProcs), nil
}

// BreadthFirstOrder visits every cell, starting each connected region at its
// lowest unvisited cell and taking neighbours in ascending order
func BreadthFirstOrder(cellCells [][]int) (order utils.Index) {
	var (
		n       = len(cellCells)
		visited = make([]bool, n)
		queue   = make([]int, 0, n)
	)
	order = make(utils.Index, 0, n)
	for seed := 0; seed < n; seed++ {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		queue = append(queue[:0], seed)
		for len(queue) > 0 {
			c := queue[0]
			queue = queue[1:]
			order = append(order, c)
			for _, nbr := range cellCells[c] {
				if !visited[nbr] {
					visited[nbr] = true
					queue = append(queue, nbr)
				}
			}
		}
	}
	return
}
