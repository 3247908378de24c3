package utils

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// DOK is a weighted, symmetric adjacency graph held as a dictionary of keys
// sparse matrix. Repeated edges accumulate their weights.
type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

func (m *DOK) SetReadOnly(name ...string) {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
}

// AddEdge adds weight w to the edges i-j and j-i
func (m DOK) AddEdge(i, j int, w float64) {
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+w)
	if i != j {
		m.M.Set(j, i, m.M.At(j, i)+w)
	}
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

// ToCSR compresses the graph to row pointer, column index and weight arrays
// with the columns of every row ascending
func (m DOK) ToCSR() (xadj, adjncy Index, weights []float64) {
	var (
		csr    = m.M.ToCSR()
		raw    = csr.RawMatrix()
		nr, _  = m.Dims()
		nnz    = len(raw.Ind)
		sorted = make([]int, 0)
	)
	xadj = make(Index, nr+1)
	adjncy = make(Index, nnz)
	weights = make([]float64, nnz)
	for i := 0; i < nr; i++ {
		start, end := raw.Indptr[i], raw.Indptr[i+1]
		xadj[i], xadj[i+1] = start, end
		sorted = sorted[:0]
		for k := start; k < end; k++ {
			sorted = append(sorted, k)
		}
		// DOK iteration order is random, rows are sorted for determinism
		sort.Slice(sorted, func(a, b int) bool { return raw.Ind[sorted[a]] < raw.Ind[sorted[b]] })
		for n, k := range sorted {
			adjncy[start+n] = raw.Ind[k]
			weights[start+n] = raw.Data[k]
		}
	}
	return
}
