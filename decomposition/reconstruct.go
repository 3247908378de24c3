package decomposition

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
	"github.com/ehsanMa86/OpenFOAM-dev/meshadder"
	"github.com/ehsanMa86/OpenFOAM-dev/utils"
)

// Relative to the shortest edge of a coupled face
const matchTolerance = 1e-4

// ReconstructMeshes folds the processor meshes, lowest index first, into
// one mesh named name. Processor patch pairs are stitched into internal
// faces, processor cyclic faces return to the cyclic patch they refer to
// and non-conformal faces are gathered in canonical order. The returned
// set holds the processor meshes with their maps into the new mesh.
func ReconstructMeshes(name string, procs []*mesh.PolyMesh, strategy Strategy,
	logger logrus.FieldLogger) (complete *mesh.PolyMesh, ps *ProcSet, err error) {
	if len(procs) == 0 {
		return nil, nil, ErrNoProcessors
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	var (
		n         = len(procs)
		pointMaps = make([]utils.Index, n)
		faceMaps  = make([]utils.Index, n)
		cellMaps  = make([]utils.Index, n)
		opts      = meshadder.AddOptions{FoldProcessorCyclics: true, Logger: logger}
	)
	complete = &mesh.PolyMesh{Name: name}
	for i, pm := range procs {
		var couple meshadder.CoupleInfo
		if couple, err = processorCouple(complete, pm, i); err != nil {
			return nil, nil, err
		}
		merged, am, aerr := meshadder.Add(complete, pm, couple, opts)
		if aerr != nil {
			return nil, nil, fmt.Errorf("adding processor %d: %w", i, aerr)
		}
		for j := 0; j < i; j++ {
			pointMaps[j].RenumberInPlace(am.PointMap0)
			faceMaps[j].RenumberInPlace(am.FaceMap0)
			cellMaps[j].RenumberInPlace(am.CellMap0)
		}
		pointMaps[i], faceMaps[i], cellMaps[i] = am.PointMap1, am.FaceMap1, am.CellMap1
		logger.WithFields(logrus.Fields{
			"proc":         i,
			"coupledFaces": len(couple.MasterFaces()),
			"cells":        merged.NCells(),
		}).Debug("added processor mesh")
		complete = merged
	}
	for pi := range complete.Patches {
		if p := &complete.Patches[pi]; p.Kind == mesh.KindProcessor {
			return nil, nil, fmt.Errorf("%w: processor patch %s has no partner", ErrProcPatchMismatch, p.Name)
		}
	}

	oldToNew, err := pairCyclicFaces(complete, procs, faceMaps)
	if err != nil {
		return nil, nil, err
	}
	if oldToNew != nil {
		renumberFaces(complete, oldToNew)
		for i := range faceMaps {
			faceMaps[i].RenumberInPlace(oldToNew)
		}
	}

	ps = &ProcSet{
		Meshes:             procs,
		PointAddressing:    make([][]int, n),
		FaceAddressing:     make([][]FaceAddress, n),
		CellAddressing:     make([][]int, n),
		BoundaryAddressing: make([][]int, n),
	}
	for i, pm := range procs {
		ps.PointAddressing[i] = pointMaps[i]
		ps.CellAddressing[i] = cellMaps[i]
		ps.FaceAddressing[i] = make([]FaceAddress, pm.NFaces())
		for lf, f := range faceMaps[i] {
			ps.FaceAddressing[i][lf] = FaceAddress{
				Index:   f,
				Flipped: complete.Owner[f] != cellMaps[i][pm.Owner[lf]],
			}
		}
		ps.BoundaryAddressing[i] = make([]int, len(pm.Patches))
		for lpi := range pm.Patches {
			ps.BoundaryAddressing[i][lpi] = -1
			if !pm.Patches[lpi].Kind.IsProcessor() {
				ps.BoundaryAddressing[i][lpi] = complete.FindPatch(pm.Patches[lpi].Name)
			}
		}
	}

	if err = reconstructNonConformal(complete, ps, strategy); err != nil {
		return nil, nil, err
	}
	if err = complete.Check(); err != nil {
		return nil, nil, fmt.Errorf("reconstructed mesh: %w", err)
	}
	return
}

// processorCouple pairs every processor patch of pm facing a processor
// already folded into complete with its partner there
func processorCouple(complete, pm *mesh.PolyMesh, proc int) (meshadder.CoupleInfo, error) {
	var master, slave []int
	for lpi := range pm.Patches {
		sp := &pm.Patches[lpi]
		if sp.Kind != mesh.KindProcessor || sp.NeighbProc >= proc {
			continue
		}
		name := mesh.ProcessorPatchName(sp.NeighbProc, proc, "")
		mpi := complete.FindPatch(name)
		if mpi == -1 {
			return nil, fmt.Errorf("%w: processor %d patch %s has no partner %s",
				ErrProcPatchMismatch, proc, sp.Name, name)
		}
		mp := &complete.Patches[mpi]
		if mp.Size != sp.Size {
			return nil, fmt.Errorf("%w: %s has %d faces, %s on processor %d has %d",
				ErrProcPatchMismatch, mp.Name, mp.Size, sp.Name, proc, sp.Size)
		}
		for k := 0; k < sp.Size; k++ {
			master = append(master, mp.Start+k)
			slave = append(slave, sp.Start+k)
		}
	}
	for mpi := range complete.Patches {
		mp := &complete.Patches[mpi]
		if mp.Kind == mesh.KindProcessor && mp.NeighbProc == proc &&
			pm.FindPatch(mesh.ProcessorPatchName(proc, mp.MyProc, "")) == -1 {
			return nil, fmt.Errorf("%w: %s has no partner on processor %d",
				ErrProcPatchMismatch, mp.Name, proc)
		}
	}
	return meshadder.NewFaceCoupleInfo(complete, pm, master, slave, matchTolerance)
}

// pairCyclicFaces returns the face renumbering that puts face j of every
// cyclic patch opposite face j of its neighbour patch, or nil when no
// cyclic patch needs it. Partners come from the cyclic pairs kept on one
// processor and from the processor cyclic patch pairs.
func pairCyclicFaces(complete *mesh.PolyMesh, procs []*mesh.PolyMesh, faceMaps []utils.Index) (
	oldToNew utils.Index, err error) {
	partner := make(map[int]int)
	link := func(i, lf, j, lg int) {
		f, g := faceMaps[i][lf], faceMaps[j][lg]
		partner[f], partner[g] = g, f
	}
	for i, pm := range procs {
		for lpi := range pm.Patches {
			p := &pm.Patches[lpi]
			switch p.Kind {
			case mesh.KindCyclic:
				nbr := pm.FindPatch(p.NeighbourPatch)
				if nbr == -1 || pm.Patches[nbr].Size != p.Size {
					return nil, fmt.Errorf("processor %d cyclic patch %s: neighbour %q missing or of different size",
						i, p.Name, p.NeighbourPatch)
				}
				for k := 0; k < p.Size; k++ {
					link(i, p.Start+k, i, pm.Patches[nbr].Start+k)
				}
			case mesh.KindProcessorCyclic:
				if p.NeighbProc < i {
					continue
				}
				refer := complete.FindPatch(p.ReferPatch)
				if refer == -1 || p.NeighbProc >= len(procs) {
					return nil, fmt.Errorf("processor %d patch %s: refer patch %q or neighbour processor %d missing",
						i, p.Name, p.ReferPatch, p.NeighbProc)
				}
				q := p.NeighbProc
				name := mesh.ProcessorPatchName(q, i, complete.Patches[refer].NeighbourPatch)
				nbr := procs[q].FindPatch(name)
				if nbr == -1 || procs[q].Patches[nbr].Size != p.Size {
					return nil, fmt.Errorf("%w: processor %d patch %s has no partner %s of the same size on processor %d",
						ErrProcPatchMismatch, i, p.Name, name, q)
				}
				for k := 0; k < p.Size; k++ {
					link(i, p.Start+k, q, procs[q].Patches[nbr].Start+k)
				}
			}
		}
	}

	for pi := range complete.Patches {
		a := &complete.Patches[pi]
		if a.Kind != mesh.KindCyclic {
			continue
		}
		nb := complete.FindPatch(a.NeighbourPatch)
		if nb < pi {
			continue
		}
		b := &complete.Patches[nb]
		if b.Size != a.Size {
			return nil, fmt.Errorf("cyclic patch %s gathered %d faces, neighbour %s %d",
				a.Name, a.Size, b.Name, b.Size)
		}
		for j := 0; j < a.Size; j++ {
			g, found := partner[a.Start+j]
			if !found || g < b.Start || g >= b.End() {
				return nil, fmt.Errorf("cyclic face %d of %s has no partner in %s", j, a.Name, b.Name)
			}
			if g == b.Start+j {
				continue
			}
			if oldToNew == nil {
				oldToNew = utils.Identity(complete.NFaces())
			}
			oldToNew[g] = b.Start + j
		}
	}
	return
}

// renumberFaces moves every face of m to oldToNew of its index
func renumberFaces(m *mesh.PolyMesh, oldToNew utils.Index) {
	m.Faces = utils.Reorder(oldToNew, m.Faces)
	m.Owner = utils.Reorder(oldToNew, m.Owner)
	for pi := range m.Patches {
		utils.Index(m.Patches[pi].PolyFaces).RenumberInPlace(oldToNew)
	}
	for zi := range m.FaceZones {
		utils.Index(m.FaceZones[zi].Indices).RenumberInPlace(oldToNew)
		m.FaceZones[zi].Sort()
	}
}
