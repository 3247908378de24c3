package partition

import (
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/stat"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
)

// Stats holds quality metrics of a cell to partition assignment
type Stats struct {
	NProcs         int
	Cells          []int          // Cells per partition
	Regions        []int          // Face-connected regions per partition
	Neighbours     [][]int        // Neighbouring partitions, ascending
	InterfaceFaces map[[2]int]int // [lower, upper] partition -> shared faces
	CutFaces       int
	MeanCells      float64
	StdDevCells    float64
	Imbalance      float64 // Largest partition over the mean, minus one
}

// Analyze computes partition quality metrics
func Analyze(m *mesh.PolyMesh, cellProc []int, nProcs int) (s *Stats) {
	s = &Stats{
		NProcs:         nProcs,
		Cells:          make([]int, nProcs),
		Regions:        make([]int, nProcs),
		Neighbours:     make([][]int, nProcs),
		InterfaceFaces: make(map[[2]int]int),
	}
	graphs := make([]*simple.UndirectedGraph, nProcs)
	for p := range graphs {
		graphs[p] = simple.NewUndirectedGraph()
	}
	for c, p := range cellProc {
		s.Cells[p]++
		graphs[p].AddNode(simple.Node(c))
	}
	for f, nbr := range m.Neighbour {
		p0, p1 := cellProc[m.Owner[f]], cellProc[nbr]
		if p0 == p1 {
			graphs[p0].SetEdge(simple.Edge{F: simple.Node(m.Owner[f]), T: simple.Node(nbr)})
			continue
		}
		s.CutFaces++
		if p0 > p1 {
			p0, p1 = p1, p0
		}
		s.InterfaceFaces[[2]int{p0, p1}]++
	}
	for pair := range s.InterfaceFaces {
		s.Neighbours[pair[0]] = append(s.Neighbours[pair[0]], pair[1])
		s.Neighbours[pair[1]] = append(s.Neighbours[pair[1]], pair[0])
	}
	for p := range graphs {
		sort.Ints(s.Neighbours[p])
		s.Regions[p] = len(topo.ConnectedComponents(graphs[p]))
	}

	load := make([]float64, nProcs)
	maxLoad := 0.
	for p, n := range s.Cells {
		load[p] = float64(n)
		if load[p] > maxLoad {
			maxLoad = load[p]
		}
	}
	s.MeanCells = stat.Mean(load, nil)
	if nProcs > 1 {
		s.StdDevCells = stat.StdDev(load, nil)
	}
	if s.MeanCells > 0 {
		s.Imbalance = maxLoad/s.MeanCells - 1
	}
	return
}

// Log reports the metrics
func (s *Stats) Log(logger logrus.FieldLogger) {
	logger.WithFields(logrus.Fields{
		"partitions": s.NProcs,
		"cutFaces":   s.CutFaces,
		"meanCells":  s.MeanCells,
		"stdDev":     s.StdDevCells,
		"imbalance":  s.Imbalance,
	}).Info("partition analysis")
	for p := 0; p < s.NProcs; p++ {
		entry := logger.WithFields(logrus.Fields{
			"proc":       p,
			"cells":      s.Cells[p],
			"neighbours": s.Neighbours[p],
			"regions":    s.Regions[p],
		})
		if s.Regions[p] > 1 {
			entry.Warn("partition is not face connected")
		} else {
			entry.Debug("partition")
		}
	}
}
