// Package decomposition splits a complete mesh into processor meshes and
// folds processor meshes back into a complete mesh, keeping the addressing
// that relates the two.
package decomposition

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
	"github.com/ehsanMa86/OpenFOAM-dev/partition"
)

// State of a DomainDecomposition
type State uint8

const (
	Unset State = iota
	// Complete and processor meshes are consistent in memory, produced by
	// decomposition or reconstruction
	Decomposed
	// Processor meshes and addressing were read from disk and found up to
	// date
	ReadProcessors
	// A re-read found a newer mesh and the other side was brought up to date
	Updated
)

func (s State) String() string {
	return [...]string{"unset", "decomposed", "readProcessors", "updated"}[s]
}

type Config struct {
	CaseDir string
	Region  string // "" is the default region
	// NProcs is the number of processors; 0 takes the count from the
	// processor directories
	NProcs   int
	Strategy Strategy
	Logger   logrus.FieldLogger
}

// DomainDecomposition holds a complete mesh, its processor meshes and the
// addressing between them for one case
type DomainDecomposition struct {
	cfg    Config
	logger logrus.FieldLogger
	state  State

	complete         *mesh.PolyMesh
	completeInstance string

	procs         *ProcSet
	procsInstance string
	cellProc      []int
	ncAddressing  [][][]int
}

func NewDomainDecomposition(cfg Config) (d *DomainDecomposition) {
	d = &DomainDecomposition{cfg: cfg, logger: cfg.Logger}
	if d.logger == nil {
		d.logger = logrus.StandardLogger()
	}
	d.logger = d.logger.WithField("case", cfg.CaseDir)
	if cfg.Region != "" {
		d.logger = d.logger.WithField("region", cfg.Region)
	}
	return
}

func (d *DomainDecomposition) State() State { return d.state }

func (d *DomainDecomposition) NProcs() int { return d.cfg.NProcs }

// CaseName names the complete mesh after the case directory
func (d *DomainDecomposition) CaseName() string {
	return filepath.Base(filepath.Clean(d.cfg.CaseDir))
}

func (d *DomainDecomposition) CompleteInstance() string { return d.completeInstance }

func (d *DomainDecomposition) ProcsInstance() string { return d.procsInstance }

// SetComplete installs an in-memory complete mesh at instance
func (d *DomainDecomposition) SetComplete(m *mesh.PolyMesh, instance string) {
	d.complete, d.completeInstance = m, instance
}

// SetProcs installs in-memory processor meshes at instance. Addressing may
// be absent.
func (d *DomainDecomposition) SetProcs(ps *ProcSet, instance string) {
	d.procs, d.procsInstance = ps, instance
	if d.cfg.NProcs == 0 {
		d.cfg.NProcs = ps.NProcs()
	}
}

func (d *DomainDecomposition) validateComplete() {
	if d.complete == nil {
		panic("complete mesh accessed before it was read or reconstructed")
	}
}

func (d *DomainDecomposition) validateProcs() {
	switch {
	case d.procs == nil || d.procs.NProcs() == 0:
		panic("processor meshes accessed before they were read or decomposed")
	case d.procs.NProcs() != d.cfg.NProcs:
		panic(fmt.Sprintf("%d processor meshes held for %d processors", d.procs.NProcs(), d.cfg.NProcs))
	}
}

func (d *DomainDecomposition) validateAddressing() {
	d.validateProcs()
	if !d.procs.HasAddressing() {
		panic("processor addressing accessed before it was read or computed")
	}
}

// HasProcAddressing reports whether processor meshes are held together with
// their addressing
func (d *DomainDecomposition) HasProcAddressing() bool {
	return d.procs != nil && d.procs.NProcs() > 0 && d.procs.HasAddressing()
}

func (d *DomainDecomposition) CompleteMesh() *mesh.PolyMesh {
	d.validateComplete()
	return d.complete
}

func (d *DomainDecomposition) ProcMeshes() []*mesh.PolyMesh {
	d.validateProcs()
	return d.procs.Meshes
}

func (d *DomainDecomposition) ProcPointAddressing() [][]int {
	d.validateAddressing()
	return d.procs.PointAddressing
}

func (d *DomainDecomposition) ProcFaceAddressing() [][]FaceAddress {
	d.validateAddressing()
	return d.procs.FaceAddressing
}

func (d *DomainDecomposition) ProcCellAddressing() [][]int {
	d.validateAddressing()
	return d.procs.CellAddressing
}

func (d *DomainDecomposition) ProcBoundaryAddressing() [][]int {
	d.validateAddressing()
	return d.procs.BoundaryAddressing
}

// NonConformalProcFaceAddressing gives, per complete patch and processor,
// the complete non-conformal faces held by the processor. Entries of
// conformal patches are nil.
func (d *DomainDecomposition) NonConformalProcFaceAddressing() [][][]int {
	d.validateProcs()
	if d.ncAddressing == nil {
		panic("non-conformal addressing accessed before decomposition")
	}
	return d.ncAddressing
}

// CellProc is the processor of every complete cell
func (d *DomainDecomposition) CellProc() []int {
	d.validateAddressing()
	if d.cellProc == nil {
		cellProc, err := d.procs.cellProc(d.CompleteMesh().NCells())
		if err != nil {
			panic(err)
		}
		d.cellProc = cellProc
	}
	return d.cellProc
}

// Decompose splits the complete mesh with method
func (d *DomainDecomposition) Decompose(method partition.Method) (err error) {
	d.validateComplete()
	if method.NumPartitions() != d.cfg.NProcs {
		return fmt.Errorf("%w: method %s makes %d partitions, %d processors requested",
			ErrProcCountMismatch, method.Name(), method.NumPartitions(), d.cfg.NProcs)
	}
	cellProc, err := method.Decompose(d.complete)
	if err != nil {
		return fmt.Errorf("%s decomposition: %w", method.Name(), err)
	}
	return d.DecomposeWith(cellProc)
}

// DecomposeWith splits the complete mesh following an explicit cell to
// processor assignment
func (d *DomainDecomposition) DecomposeWith(cellProc []int) (err error) {
	d.validateComplete()
	partition.Analyze(d.complete, cellProc, d.cfg.NProcs).Log(d.logger)
	ps, ncAddr, err := DecomposeMesh(d.complete, cellProc, d.cfg.NProcs)
	if err != nil {
		return
	}
	d.procs, d.procsInstance = ps, d.completeInstance
	d.cellProc, d.ncAddressing = cellProc, ncAddr
	d.state = Decomposed
	for p, pm := range ps.Meshes {
		d.logger.WithFields(logrus.Fields{
			"proc":    p,
			"points":  pm.NPoints(),
			"faces":   pm.NFaces(),
			"cells":   pm.NCells(),
			"patches": len(pm.Patches),
		}).Info("processor mesh")
	}
	return
}

// Reconstruct folds the processor meshes into the complete mesh
func (d *DomainDecomposition) Reconstruct() (err error) {
	d.validateProcs()
	complete, ps, err := ReconstructMeshes(d.CaseName(), d.procs.Meshes, d.cfg.Strategy, d.logger)
	if err != nil {
		return
	}
	d.complete, d.completeInstance = complete, d.procsInstance
	d.procs, d.cellProc, d.ncAddressing = ps, nil, nil
	d.state = Decomposed
	d.logger.WithFields(logrus.Fields{
		"points": complete.NPoints(),
		"faces":  complete.NFaces(),
		"cells":  complete.NCells(),
	}).Info("reconstructed mesh")
	return
}

// CheckConsistency compares the complete mesh with the processor meshes:
// the cell and face totals must agree, every patch that is not an
// inter-processor patch must exist on both sides, and with addressing
// present the processor points must cover exactly the complete points
func (d *DomainDecomposition) CheckConsistency() error {
	d.validateComplete()
	d.validateProcs()
	var nCells, nFaces, nShared int
	for p, pm := range d.procs.Meshes {
		nCells += pm.NCells()
		nFaces += pm.NFaces()
		for lpi := range pm.Patches {
			lp := &pm.Patches[lpi]
			switch {
			case lp.Kind == mesh.KindProcessor:
				nShared += lp.Size
			case lp.Kind.IsProcessor():
			case d.complete.FindPatch(lp.Name) == -1:
				return fmt.Errorf("%w: patch %s of processor %d is not in the complete mesh",
					ErrInconsistent, lp.Name, p)
			}
		}
		for pi := range d.complete.Patches {
			cp := &d.complete.Patches[pi]
			if !cp.Kind.IsProcessor() && pm.FindPatch(cp.Name) == -1 {
				return fmt.Errorf("%w: patch %s of the complete mesh is missing on processor %d",
					ErrInconsistent, cp.Name, p)
			}
		}
	}
	nFaces -= nShared / 2
	if nCells != d.complete.NCells() || nFaces != d.complete.NFaces() {
		return fmt.Errorf("%w: processors hold %d cells and %d faces, complete mesh %d cells and %d faces",
			ErrInconsistent, nCells, nFaces, d.complete.NCells(), d.complete.NFaces())
	}
	if d.procs.HasAddressing() {
		return d.checkPointCoverage()
	}
	return nil
}

func (d *DomainDecomposition) checkPointCoverage() error {
	var (
		nPoints = d.complete.NPoints()
		reached = make([]bool, nPoints)
		maxAddr = -1
	)
	for p, addr := range d.procs.PointAddressing {
		for lp, gp := range addr {
			if gp >= nPoints || gp < 0 {
				return fmt.Errorf("%w: point %d of processor %d addresses point %d of %d",
					ErrInconsistent, lp, p, gp, nPoints)
			}
			reached[gp] = true
			if gp > maxAddr {
				maxAddr = gp
			}
		}
	}
	if maxAddr+1 != nPoints {
		return fmt.Errorf("%w: processors address %d points, complete mesh has %d",
			ErrInconsistent, maxAddr+1, nPoints)
	}
	for gp, ok := range reached {
		if !ok {
			return fmt.Errorf("%w: point %d of the complete mesh is on no processor",
				ErrInconsistent, gp)
		}
	}
	return nil
}

// Unconform rebuilds the non-conformal faces of whichever side lacks them
func (d *DomainDecomposition) Unconform() (err error) {
	d.validateComplete()
	d.validateAddressing()
	ncAddr, err := unconform(d.complete, d.procs, d.cfg.Strategy)
	if err != nil {
		return
	}
	if ncAddr != nil {
		d.ncAddressing = ncAddr
	}
	return
}
