package decomposition

import (
	"fmt"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
)

// FaceAddress is the image of a processor face in the complete mesh.
// Flipped is set when the processor face is wound opposite to the complete
// face, i.e. its owner is the neighbour of the complete face.
type FaceAddress struct {
	Index   int
	Flipped bool
}

// Encode gives the file form: Index+1, negated when flipped
func (fa FaceAddress) Encode() int {
	if fa.Flipped {
		return -(fa.Index + 1)
	}
	return fa.Index + 1
}

func DecodeFaceAddress(code int) (fa FaceAddress, err error) {
	switch {
	case code > 0:
		return FaceAddress{Index: code - 1}, nil
	case code < 0:
		return FaceAddress{Index: -code - 1, Flipped: true}, nil
	}
	return fa, fmt.Errorf("face address 0 is not a valid encoding")
}

func EncodeFaceAddressing(addr []FaceAddress) (codes []int) {
	codes = make([]int, len(addr))
	for i, fa := range addr {
		codes[i] = fa.Encode()
	}
	return
}

func DecodeFaceAddressing(codes []int) (addr []FaceAddress, err error) {
	addr = make([]FaceAddress, len(codes))
	for i, c := range codes {
		if addr[i], err = DecodeFaceAddress(c); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return
}

// ProcSet is a set of processor meshes with the maps taking their entities
// to the complete mesh. Boundary addressing is -1 for inter-processor
// patches.
type ProcSet struct {
	Meshes             []*mesh.PolyMesh
	PointAddressing    [][]int
	FaceAddressing     [][]FaceAddress
	CellAddressing     [][]int
	BoundaryAddressing [][]int
}

func (ps *ProcSet) NProcs() int {
	return len(ps.Meshes)
}

// HasAddressing reports whether all four maps are present for every mesh
func (ps *ProcSet) HasAddressing() bool {
	n := len(ps.Meshes)
	return len(ps.PointAddressing) == n && len(ps.FaceAddressing) == n &&
		len(ps.CellAddressing) == n && len(ps.BoundaryAddressing) == n
}

// globalToLocalFaces inverts the face addressing of every processor
func (ps *ProcSet) globalToLocalFaces() (local []map[int]int) {
	local = make([]map[int]int, len(ps.FaceAddressing))
	for p, addr := range ps.FaceAddressing {
		local[p] = make(map[int]int, len(addr))
		for lf, fa := range addr {
			local[p][fa.Index] = lf
		}
	}
	return
}

// cellProc recovers the cell to processor assignment from the cell addressing
func (ps *ProcSet) cellProc(nCells int) (cellProc []int, err error) {
	cellProc = make([]int, nCells)
	for c := range cellProc {
		cellProc[c] = -1
	}
	for p, addr := range ps.CellAddressing {
		for _, c := range addr {
			if c < 0 || c >= nCells || cellProc[c] != -1 {
				return nil, fmt.Errorf("cell addressing of processor %d: cell %d out of range or repeated", p, c)
			}
			cellProc[c] = p
		}
	}
	for c, p := range cellProc {
		if p == -1 {
			return nil, fmt.Errorf("cell %d is on no processor", c)
		}
	}
	return
}
