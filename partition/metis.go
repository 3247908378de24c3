package partition

import (
	"fmt"

	metis "github.com/notargets/go-metis"

	"github.com/ehsanMa86/OpenFOAM-dev/InputParameters"
	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
	"github.com/ehsanMa86/OpenFOAM-dev/utils"
)

// Metis partitions the cell graph with METIS k-way. Cells are weighted by
// their face count and graph edges by the point count of the shared face,
// each weighting switched by Coeffs.
type Metis struct {
	NProcs int
	Coeffs InputParameters.MetisCoeffs
}

func (mt *Metis) Name() string       { return "metis" }
func (mt *Metis) NumPartitions() int { return mt.NProcs }

func (mt *Metis) Decompose(m *mesh.PolyMesh) (cellProc []int, err error) {
	cellProc = make([]int, m.NCells())
	if mt.NProcs == 1 {
		return
	}
	opts, err := mt.options()
	if err != nil {
		return nil, err
	}
	xadj, adjncy, vwgt, adjwgt := BuildMetisGraph(m)
	if !mt.Coeffs.UseVertexWeights {
		vwgt = nil
	}
	if !mt.Coeffs.UseEdgeWeights {
		adjwgt = nil
	}
	part, _, err := metis.PartGraphKwayWeighted(xadj, adjncy, vwgt, adjwgt,
		int32(mt.NProcs), nil, []float32{mt.imbalance()}, opts)
	if err != nil {
		return nil, fmt.Errorf("metis k-way on %d cells: %w", len(cellProc), err)
	}
	for c, p := range part {
		cellProc[c] = int(p)
	}
	return
}

func (mt *Metis) options() (opts []int32, err error) {
	var objType int32
	switch mt.Coeffs.Objective {
	case "", "vol":
		objType = metis.ObjTypeVol
	case "cut":
		objType = metis.ObjTypeCut
	default:
		return nil, fmt.Errorf("unknown metis objective %q, use cut or vol", mt.Coeffs.Objective)
	}
	opts = make([]int32, metis.NoOptions)
	if err = metis.SetDefaultOptions(opts); err != nil {
		return nil, fmt.Errorf("metis options: %w", err)
	}
	opts[metis.OptionObjType] = objType
	return
}

// imbalance is the allowed load ratio, a ratio below one falls back to the
// dictionary default
func (mt *Metis) imbalance() float32 {
	if mt.Coeffs.Imbalance < 1 {
		return InputParameters.NewDecomposeParDict().MetisCoeffs.Imbalance
	}
	return mt.Coeffs.Imbalance
}

// BuildMetisGraph converts the cell graph of m to METIS format
func BuildMetisGraph(m *mesh.PolyMesh) (xadj, adjncy, vwgt, adjwgt []int32) {
	nCells := m.NCells()
	g := NewCellGraph(m)
	cx, cadj, w := g.ToCSR()

	xadj = toInt32(cx)
	adjncy = toInt32(cadj)
	adjwgt = make([]int32, len(w))
	for k := range w {
		adjwgt[k] = int32(w[k])
	}
	vwgt = make([]int32, nCells)
	for _, c := range m.Owner {
		vwgt[c]++
	}
	for _, c := range m.Neighbour {
		vwgt[c]++
	}
	return
}

// NewCellGraph returns the face adjacency of the cells, each edge weighted
// by the point count of the faces shared
func NewCellGraph(m *mesh.PolyMesh) (g utils.DOK) {
	nCells := m.NCells()
	g = utils.NewDOK(nCells, nCells)
	for f, nbr := range m.Neighbour {
		g.AddEdge(m.Owner[f], nbr, float64(len(m.Faces[f])))
	}
	g.SetReadOnly("cellGraph")
	return
}

func toInt32(I utils.Index) (r []int32) {
	r = make([]int32, len(I))
	for i, v := range I {
		r[i] = int32(v)
	}
	return
}
