package decomposition

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
	"github.com/ehsanMa86/OpenFOAM-dev/partition"
	"github.com/ehsanMa86/OpenFOAM-dev/utils"
)

var (
	ErrNoCompleteMesh    = errors.New("no complete mesh")
	ErrNoProcessors      = errors.New("no processor meshes")
	ErrProcCountMismatch = errors.New("processor count mismatch")
	ErrProcPatchMismatch = errors.New("processor patches do not match")
	ErrInconsistent      = errors.New("complete and processor meshes are inconsistent")
)

// procBuilder accumulates the faces of one processor mesh in complete mesh
// numbering
type procBuilder struct {
	proc      int
	faces     [][]int
	owner     []int
	neighbour []int
	addr      []FaceAddress
	patches   []mesh.Patch
	boundary  []int

	patchFaces map[int][]int    // complete patch -> faces kept in it
	cut        map[int][]int    // neighbour proc -> cut internal faces
	cyclicCut  map[[2]int][]int // {neighbour proc, complete patch} -> cyclic faces
	localFaces map[int]int      // complete face -> local face
}

func newProcBuilder(proc int) *procBuilder {
	return &procBuilder{
		proc:       proc,
		patchFaces: make(map[int][]int),
		cut:        make(map[int][]int),
		cyclicCut:  make(map[[2]int][]int),
		localFaces: make(map[int]int),
	}
}

// addFace appends complete face f, reversed when this processor holds its
// neighbour cell
func (b *procBuilder) addFace(m *mesh.PolyMesh, f, localOwner int, reversed bool) {
	b.localFaces[f] = len(b.faces)
	face := m.Faces[f]
	if reversed {
		face = mesh.ReverseFace(face)
	}
	b.faces = append(b.faces, face)
	b.owner = append(b.owner, localOwner)
	b.addr = append(b.addr, FaceAddress{Index: f, Flipped: reversed})
}

func (b *procBuilder) beginPatch(p mesh.Patch, completePatch int) {
	p.Start, p.Size = len(b.faces), 0
	b.patches = append(b.patches, p)
	b.boundary = append(b.boundary, completePatch)
}

func (b *procBuilder) endPatch() {
	p := &b.patches[len(b.patches)-1]
	p.Size = len(b.faces) - p.Start
}

// DecomposeMesh splits m into nProcs processor meshes following cellProc.
// Each processor holds its cells in ascending complete order, the internal
// faces between them, every complete patch (possibly empty), then per
// neighbouring processor in ascending order a processor patch for the cut
// internal faces followed by a processorCyclic patch per cyclic patch cut by
// the partition. Non-conformal processor cyclic patches come last. Returns
// the processor meshes and, per complete patch and processor, the complete
// non-conformal faces held by that processor.
func DecomposeMesh(m *mesh.PolyMesh, cellProc []int, nProcs int) (ps *ProcSet, ncAddr [][][]int, err error) {
	if err = partition.Validate(cellProc, m.NCells(), nProcs); err != nil {
		return
	}
	var (
		nInternal = m.NInternalFaces()
		builders  = make([]*procBuilder, nProcs)
		localCell = make([]int, m.NCells())
		procCells = make([][]int, nProcs)
	)
	for p := range builders {
		builders[p] = newProcBuilder(p)
	}
	for c, p := range cellProc {
		localCell[c] = len(procCells[p])
		procCells[p] = append(procCells[p], c)
	}

	for f := 0; f < nInternal; f++ {
		own, nbr := m.Owner[f], m.Neighbour[f]
		po, pn := cellProc[own], cellProc[nbr]
		if po == pn {
			b := builders[po]
			b.addFace(m, f, localCell[own], false)
			b.neighbour = append(b.neighbour, localCell[nbr])
			continue
		}
		builders[po].cut[pn] = append(builders[po].cut[pn], f)
		builders[pn].cut[po] = append(builders[pn].cut[po], f)
	}

	partnerFace, err := cyclicPartners(m)
	if err != nil {
		return nil, nil, err
	}
	for pi := range m.Patches {
		p := &m.Patches[pi]
		for f := p.Start; f < p.End(); f++ {
			proc := cellProc[m.Owner[f]]
			b := builders[proc]
			if partner, found := partnerFace[f]; found {
				if q := cellProc[m.Owner[partner]]; q != proc {
					key := [2]int{q, pi}
					b.cyclicCut[key] = append(b.cyclicCut[key], f)
					continue
				}
			}
			b.patchFaces[pi] = append(b.patchFaces[pi], f)
		}
	}

	ps = &ProcSet{
		Meshes:             make([]*mesh.PolyMesh, nProcs),
		PointAddressing:    make([][]int, nProcs),
		FaceAddressing:     make([][]FaceAddress, nProcs),
		CellAddressing:     procCells,
		BoundaryAddressing: make([][]int, nProcs),
	}
	localPoint := utils.NewFilled(m.NPoints(), -1)
	localFaces := make([]map[int]int, nProcs)
	for p, b := range builders {
		b.addPatches(m, cellProc, localCell)
		var pointAddr utils.Index
		ps.Meshes[p], pointAddr = b.assemble(m, localPoint)
		ps.PointAddressing[p] = pointAddr
		ps.FaceAddressing[p] = b.addr
		ps.BoundaryAddressing[p] = b.boundary
		ps.Meshes[p].SetNCells(len(procCells[p]))
		restrictZones(m, ps.Meshes[p], p, cellProc, localCell, localPoint, b)
		localFaces[p] = b.localFaces
		for _, gp := range pointAddr {
			localPoint[gp] = -1
		}
	}

	if ncAddr, err = decomposeNonConformal(m, cellProc, ps, localFaces); err != nil {
		return nil, nil, err
	}
	for p, pm := range ps.Meshes {
		if err = pm.Check(); err != nil {
			return nil, nil, fmt.Errorf("processor %d: %w", p, err)
		}
	}
	return
}

// cyclicPartners pairs face i of every conformal cyclic patch with face i of
// its neighbour patch
func cyclicPartners(m *mesh.PolyMesh) (partner map[int]int, err error) {
	partner = make(map[int]int)
	for pi := range m.Patches {
		p := &m.Patches[pi]
		if p.Kind != mesh.KindCyclic {
			continue
		}
		nbr := m.FindPatch(p.NeighbourPatch)
		if nbr == -1 || m.Patches[nbr].Size != p.Size {
			return nil, fmt.Errorf("cyclic patch %s: neighbour patch %q missing or of different size",
				p.Name, p.NeighbourPatch)
		}
		for i := 0; i < p.Size; i++ {
			partner[p.Start+i] = m.Patches[nbr].Start + i
		}
	}
	return
}

// addPatches lays out the boundary faces of the processor after its
// internal faces
func (b *procBuilder) addPatches(m *mesh.PolyMesh, cellProc, localCell []int) {
	for pi := range m.Patches {
		np := m.Patches[pi].Clone()
		np.PolyFaces = nil
		b.beginPatch(np, pi)
		for _, f := range b.patchFaces[pi] {
			b.addFace(m, f, localCell[m.Owner[f]], false)
		}
		b.endPatch()
	}

	nbrs := make(map[int]bool)
	for q := range b.cut {
		nbrs[q] = true
	}
	cyclicKeys := make([][2]int, 0, len(b.cyclicCut))
	for key := range b.cyclicCut {
		nbrs[key[0]] = true
		cyclicKeys = append(cyclicKeys, key)
	}
	sort.Slice(cyclicKeys, func(i, j int) bool {
		if cyclicKeys[i][0] != cyclicKeys[j][0] {
			return cyclicKeys[i][0] < cyclicKeys[j][0]
		}
		return cyclicKeys[i][1] < cyclicKeys[j][1]
	})
	order := make([]int, 0, len(nbrs))
	for q := range nbrs {
		order = append(order, q)
	}
	sort.Ints(order)

	next := 0
	for _, q := range order {
		if faces := b.cut[q]; len(faces) > 0 {
			b.beginPatch(mesh.Patch{
				Name:       mesh.ProcessorPatchName(b.proc, q, ""),
				Kind:       mesh.KindProcessor,
				MyProc:     b.proc,
				NeighbProc: q,
			}, -1)
			for _, f := range faces {
				if own := m.Owner[f]; cellProc[own] == b.proc {
					b.addFace(m, f, localCell[own], false)
				} else {
					b.addFace(m, f, localCell[m.Neighbour[f]], true)
				}
			}
			b.endPatch()
		}
		for ; next < len(cyclicKeys) && cyclicKeys[next][0] == q; next++ {
			pi := cyclicKeys[next][1]
			cp := &m.Patches[pi]
			b.beginPatch(mesh.Patch{
				Name:       mesh.ProcessorPatchName(b.proc, q, cp.Name),
				Kind:       mesh.KindProcessorCyclic,
				MyProc:     b.proc,
				NeighbProc: q,
				ReferPatch: cp.Name,
			}, -1)
			for _, f := range b.cyclicCut[cyclicKeys[next]] {
				b.addFace(m, f, localCell[m.Owner[f]], false)
			}
			b.endPatch()
		}
	}
}

// assemble renumbers the collected faces to local points, which are kept in
// ascending complete order. localPoint must be all -1 on entry and is left
// holding the local index of every point of this processor.
func (b *procBuilder) assemble(m *mesh.PolyMesh, localPoint utils.Index) (pm *mesh.PolyMesh,
	pointAddr utils.Index) {
	pointAddr = make(utils.Index, 0)
	for _, face := range b.faces {
		for _, gp := range face {
			if localPoint[gp] == -1 {
				localPoint[gp] = 0
				pointAddr = append(pointAddr, gp)
			}
		}
	}
	sort.Ints(pointAddr)
	for lp, gp := range pointAddr {
		localPoint[gp] = lp
	}
	points := make([]r3.Vec, len(pointAddr))
	for lp, gp := range pointAddr {
		points[lp] = m.Points[gp]
	}
	faces := make([][]int, len(b.faces))
	for lf, face := range b.faces {
		faces[lf] = utils.Index(face).Renumber(localPoint)
	}
	pm = mesh.NewPolyMesh(fmt.Sprintf("processor%d", b.proc), points, faces, b.owner, b.neighbour, b.patches)
	return
}
