package partition

import (
	"errors"
	"fmt"
	"os"

	"github.com/ghodss/yaml"

	"github.com/ehsanMa86/OpenFOAM-dev/InputParameters"
	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
)

var ErrInvalidAssignment = errors.New("invalid cell to partition assignment")

// Method assigns every cell of a mesh to one of NumPartitions partitions
type Method interface {
	Decompose(m *mesh.PolyMesh) ([]int, error)
	NumPartitions() int
	Name() string
}

// Validate checks that cellProc gives each of nCells cells one partition in
// [0, nProcs)
func Validate(cellProc []int, nCells, nProcs int) error {
	if len(cellProc) != nCells {
		return fmt.Errorf("%w: %d labels for %d cells", ErrInvalidAssignment, len(cellProc), nCells)
	}
	for c, p := range cellProc {
		if p < 0 || p >= nProcs {
			return fmt.Errorf("%w: cell %d assigned to partition %d, expected [0, %d)",
				ErrInvalidAssignment, c, p, nProcs)
		}
	}
	return nil
}

// NewMethod builds the method named in the dictionary
func NewMethod(dp *InputParameters.DecomposeParDict) (Method, error) {
	n := dp.NumberOfSubdomains
	switch dp.Method {
	case "simple":
		return &Simple{N: dp.SimpleCoeffs.N}, nil
	case "block":
		return &Block{NProcs: n}, nil
	case "roundRobin":
		return &RoundRobin{NProcs: n}, nil
	case "graph":
		return &Graph{NProcs: n}, nil
	case "metis":
		return &Metis{NProcs: n, Coeffs: dp.MetisCoeffs}, nil
	case "manual":
		labels := dp.ManualCoeffs.CellToProc
		if dp.ManualCoeffs.DataFile != "" {
			var err error
			if labels, err = ReadCellProc(dp.ManualCoeffs.DataFile); err != nil {
				return nil, err
			}
		}
		return &Manual{NProcs: n, CellProc: labels}, nil
	default:
		return nil, fmt.Errorf("unknown decomposition method %q", dp.Method)
	}
}

// ReadCellProc reads a cell to partition list written as a YAML sequence
func ReadCellProc(fileName string) (cellProc []int, err error) {
	var data []byte
	if data, err = os.ReadFile(fileName); err != nil {
		return nil, fmt.Errorf("reading cell to partition file: %w", err)
	}
	if err = yaml.Unmarshal(data, &cellProc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", fileName, err)
	}
	return
}

// Manual uses a given assignment
type Manual struct {
	NProcs   int
	CellProc []int
}

func (mm *Manual) Name() string       { return "manual" }
func (mm *Manual) NumPartitions() int { return mm.NProcs }

func (mm *Manual) Decompose(m *mesh.PolyMesh) (cellProc []int, err error) {
	if err = Validate(mm.CellProc, m.NCells(), mm.NProcs); err != nil {
		return nil, err
	}
	cellProc = append([]int(nil), mm.CellProc...)
	return
}
