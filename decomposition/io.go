package decomposition

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
	"github.com/ehsanMa86/OpenFOAM-dev/mesh/files"
	"github.com/ehsanMa86/OpenFOAM-dev/partition"
)

const (
	pointProcAddressing    = "pointProcAddressing"
	faceProcAddressing     = "faceProcAddressing"
	cellProcAddressing     = "cellProcAddressing"
	boundaryProcAddressing = "boundaryProcAddressing"
	cellProcObject         = "cellProc"
)

func (d *DomainDecomposition) completeMeshDir(instance string) string {
	return files.MeshDir(d.cfg.CaseDir, instance, d.cfg.Region)
}

func (d *DomainDecomposition) procMeshDir(proc int, instance string) string {
	return files.MeshDir(files.ProcessorDir(d.cfg.CaseDir, proc), instance, d.cfg.Region)
}

// ReadComplete loads the newest complete mesh of the case
func (d *DomainDecomposition) ReadComplete() (err error) {
	instance, err := files.LatestMeshInstance(d.cfg.CaseDir, d.cfg.Region)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoCompleteMesh, err)
	}
	return d.readComplete(instance)
}

func (d *DomainDecomposition) readComplete(instance string) (err error) {
	m, err := files.ReadPolyMesh(d.completeMeshDir(instance), d.CaseName())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoCompleteMesh, err)
	}
	d.complete, d.completeInstance = m, instance
	d.logger.WithFields(logrus.Fields{
		"instance": instance,
		"cells":    m.NCells(),
	}).Info("read complete mesh")
	return
}

// latestProcsInstance is the newest mesh instance of processor 0
func (d *DomainDecomposition) latestProcsInstance() (string, error) {
	return files.LatestMeshInstance(files.ProcessorDir(d.cfg.CaseDir, 0), d.cfg.Region)
}

// countProcs checks the processor directories against the configured
// processor count, adopting the directory count when none is configured
func (d *DomainDecomposition) countProcs() (n int, err error) {
	if n, err = files.NumProcessorDirs(d.cfg.CaseDir); err != nil {
		return
	}
	switch {
	case d.cfg.NProcs == 0:
		d.cfg.NProcs = n
	case n != 0 && n != d.cfg.NProcs:
		return n, fmt.Errorf("%w: %d processor directories in %s, %d processors requested",
			ErrProcCountMismatch, n, d.cfg.CaseDir, d.cfg.NProcs)
	}
	return
}

// ReadProcs loads the newest processor meshes and, where present, their
// addressing
func (d *DomainDecomposition) ReadProcs() (err error) {
	n, err := d.countProcs()
	if err != nil {
		return
	}
	if n == 0 {
		return fmt.Errorf("%w in %s", ErrNoProcessors, d.cfg.CaseDir)
	}
	instance, err := d.latestProcsInstance()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoProcessors, err)
	}
	ps, err := d.readProcs(instance)
	if err != nil {
		return
	}
	d.procs, d.procsInstance = ps, instance
	d.cellProc, d.ncAddressing = nil, nil
	d.logger.WithFields(logrus.Fields{
		"instance":   instance,
		"processors": n,
		"addressing": ps.HasAddressing(),
	}).Info("read processor meshes")
	return
}

func (d *DomainDecomposition) readProcs(instance string) (ps *ProcSet, err error) {
	n := d.cfg.NProcs
	ps = &ProcSet{Meshes: make([]*mesh.PolyMesh, n)}
	withAddressing := true
	var (
		point, cell, boundary = make([][]int, n), make([][]int, n), make([][]int, n)
		face                  = make([][]FaceAddress, n)
	)
	for p := 0; p < n; p++ {
		dir := d.procMeshDir(p, instance)
		if ps.Meshes[p], err = files.ReadPolyMesh(dir, fmt.Sprintf("processor%d", p)); err != nil {
			return nil, fmt.Errorf("processor %d: %w", p, err)
		}
		if !withAddressing || !files.Exists(dir, faceProcAddressing) {
			withAddressing = false
			continue
		}
		if point[p], err = files.ReadLabelList(dir, pointProcAddressing); err != nil {
			return
		}
		if cell[p], err = files.ReadLabelList(dir, cellProcAddressing); err != nil {
			return
		}
		if boundary[p], err = files.ReadLabelList(dir, boundaryProcAddressing); err != nil {
			return
		}
		var codes []int
		if codes, err = files.ReadLabelList(dir, faceProcAddressing); err != nil {
			return
		}
		if face[p], err = DecodeFaceAddressing(codes); err != nil {
			return nil, fmt.Errorf("processor %d %s: %w", p, faceProcAddressing, err)
		}
	}
	if withAddressing {
		ps.PointAddressing, ps.FaceAddressing = point, face
		ps.CellAddressing, ps.BoundaryAddressing = cell, boundary
	}
	return
}

// WriteComplete writes the complete mesh at instance
func (d *DomainDecomposition) WriteComplete(instance string) error {
	d.validateComplete()
	return files.WritePolyMesh(d.completeMeshDir(instance), d.complete)
}

// WriteProcs writes every processor mesh and its addressing at instance,
// and the cell to processor assignment next to the complete mesh
func (d *DomainDecomposition) WriteProcs(instance string) (err error) {
	d.validateProcs()
	for p, pm := range d.procs.Meshes {
		if err = files.WritePolyMesh(d.procMeshDir(p, instance), pm); err != nil {
			return fmt.Errorf("processor %d: %w", p, err)
		}
	}
	if d.procs.HasAddressing() {
		if err = d.WriteAddressing(instance); err != nil {
			return
		}
	}
	if d.complete != nil && d.procs.HasAddressing() {
		dir := filepath.Join(d.cfg.CaseDir, files.Constant, d.cfg.Region)
		err = files.WriteLabelList(dir, cellProcObject, d.CellProc())
	}
	return
}

// WriteAddressing writes the processor to complete maps of every processor
func (d *DomainDecomposition) WriteAddressing(instance string) (err error) {
	d.validateAddressing()
	for p := range d.procs.Meshes {
		dir := d.procMeshDir(p, instance)
		lists := []struct {
			object string
			labels []int
		}{
			{pointProcAddressing, d.procs.PointAddressing[p]},
			{faceProcAddressing, EncodeFaceAddressing(d.procs.FaceAddressing[p])},
			{cellProcAddressing, d.procs.CellAddressing[p]},
			{boundaryProcAddressing, d.procs.BoundaryAddressing[p]},
		}
		for _, l := range lists {
			if err = files.WriteLabelList(dir, l.object, l.labels); err != nil {
				return fmt.Errorf("processor %d: %w", p, err)
			}
		}
	}
	return
}

// ReadDecompose reads the complete mesh and decomposes it with method,
// unless processor meshes with addressing at least as new as the complete
// mesh are on disk, in which case those are read instead. Reports whether a
// decomposition was computed.
func (d *DomainDecomposition) ReadDecompose(method partition.Method) (decomposed bool, err error) {
	if err = d.ReadComplete(); err != nil {
		return
	}
	n, err := d.countProcs()
	if err != nil {
		return
	}
	if n == d.cfg.NProcs && n > 0 {
		if instance, ierr := d.latestProcsInstance(); ierr == nil &&
			CompareInstances(instance, d.completeInstance) <= 0 {
			var ps *ProcSet
			if ps, err = d.readProcs(instance); err != nil {
				return
			}
			if ps.HasAddressing() {
				d.procs, d.procsInstance = ps, instance
				d.cellProc, d.ncAddressing = nil, nil
				d.state = ReadProcessors
				d.logger.WithField("instance", instance).Info("processor meshes up to date, decomposition skipped")
				return false, nil
			}
		}
	}
	if err = d.Decompose(method); err != nil {
		return
	}
	return true, nil
}

// ReadReconstruct reads the processor meshes and reconstructs them, unless
// a complete mesh at least as new is on disk and consistent with them, in
// which case it is read instead. Reports whether a reconstruction was
// computed.
func (d *DomainDecomposition) ReadReconstruct() (reconstructed bool, err error) {
	if err = d.ReadProcs(); err != nil {
		return
	}
	instance, ierr := files.LatestMeshInstance(d.cfg.CaseDir, d.cfg.Region)
	if ierr == nil && CompareInstances(instance, d.procsInstance) <= 0 && d.procs.HasAddressing() {
		if err = d.readComplete(instance); err != nil {
			return
		}
		if err = d.CheckConsistency(); err != nil {
			return
		}
		if err = d.Unconform(); err != nil {
			return
		}
		d.state = ReadProcessors
		d.logger.WithField("instance", instance).Info("complete mesh up to date, reconstruction skipped")
		return false, nil
	}
	if err = d.Reconstruct(); err != nil {
		return
	}
	return true, nil
}

// ReadUpdateComplete re-reads the complete mesh when a newer instance is on
// disk
func (d *DomainDecomposition) ReadUpdateComplete() (state UpdateState, err error) {
	d.validateComplete()
	instance, err := files.LatestMeshInstance(d.cfg.CaseDir, d.cfg.Region)
	if err != nil {
		return
	}
	if CompareInstances(instance, d.completeInstance) >= 0 {
		return UpdateUnchanged, nil
	}
	old := d.complete
	if err = d.readComplete(instance); err != nil {
		return
	}
	return compareMeshes(old, d.complete), nil
}

// ReadUpdateDecompose brings the processor meshes up to date with a newer
// complete mesh: moved points are copied through the point addressing, a
// changed topology is decomposed again with method
func (d *DomainDecomposition) ReadUpdateDecompose(method partition.Method) (state UpdateState, err error) {
	if state, err = d.ReadUpdateComplete(); err != nil {
		return
	}
	switch state {
	case UpdateUnchanged:
		return
	case UpdatePointsMoved:
		d.validateAddressing()
		for p, pm := range d.procs.Meshes {
			for lp, gp := range d.procs.PointAddressing[p] {
				pm.Points[lp] = d.complete.Points[gp]
			}
		}
		d.procsInstance = d.completeInstance
	case UpdateTopoChanged:
		if err = d.Decompose(method); err != nil {
			return
		}
	}
	d.state = Updated
	d.logger.WithFields(logrus.Fields{"instance": d.completeInstance, "update": state}).Info("processor meshes updated")
	return
}

// ReadUpdateReconstruct brings the complete mesh up to date with newer
// processor meshes: moved points are copied through the point addressing, a
// changed topology is reconstructed again
func (d *DomainDecomposition) ReadUpdateReconstruct() (state UpdateState, err error) {
	d.validateProcs()
	instance, err := d.latestProcsInstance()
	if err != nil {
		return
	}
	if CompareInstances(instance, d.procsInstance) >= 0 {
		return UpdateUnchanged, nil
	}
	old := d.procs
	ps, err := d.readProcs(instance)
	if err != nil {
		return
	}
	state = UpdateUnchanged
	for p := range ps.Meshes {
		if s := compareMeshes(old.Meshes[p], ps.Meshes[p]); s > state {
			state = s
		}
	}
	switch state {
	case UpdateUnchanged:
		d.procsInstance = instance
		return
	case UpdatePointsMoved:
		d.validateComplete()
		d.validateAddressing()
		for p, pm := range ps.Meshes {
			for lp, gp := range d.procs.PointAddressing[p] {
				d.complete.Points[gp] = pm.Points[lp]
			}
		}
		d.procs.Meshes = ps.Meshes
		d.procsInstance, d.completeInstance = instance, instance
	case UpdateTopoChanged:
		d.procs, d.procsInstance = ps, instance
		if err = d.Reconstruct(); err != nil {
			return
		}
	}
	d.state = Updated
	d.logger.WithFields(logrus.Fields{"instance": instance, "update": state}).Info("complete mesh updated")
	return
}

// RemoveProcs deletes the processor directories of the case
func (d *DomainDecomposition) RemoveProcs() error {
	return files.RemoveProcessorDirs(d.cfg.CaseDir)
}

// compareMeshes classifies the change from a to b
func compareMeshes(a, b *mesh.PolyMesh) UpdateState {
	if !sameTopology(a, b) {
		return UpdateTopoChanged
	}
	for i := range a.Points {
		if a.Points[i] != b.Points[i] {
			return UpdatePointsMoved
		}
	}
	return UpdateUnchanged
}

func sameTopology(a, b *mesh.PolyMesh) bool {
	if a.NPoints() != b.NPoints() || a.NFaces() != b.NFaces() ||
		a.NInternalFaces() != b.NInternalFaces() || len(a.Patches) != len(b.Patches) {
		return false
	}
	for f := range a.Faces {
		if a.Owner[f] != b.Owner[f] || len(a.Faces[f]) != len(b.Faces[f]) {
			return false
		}
		for k := range a.Faces[f] {
			if a.Faces[f][k] != b.Faces[f][k] {
				return false
			}
		}
	}
	for f := range a.Neighbour {
		if a.Neighbour[f] != b.Neighbour[f] {
			return false
		}
	}
	for i := range a.Patches {
		pa, pb := &a.Patches[i], &b.Patches[i]
		if pa.Name != pb.Name || pa.Kind != pb.Kind || pa.Start != pb.Start || pa.Size != pb.Size {
			return false
		}
	}
	return true
}
