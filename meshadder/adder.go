package meshadder

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
	"github.com/ehsanMa86/OpenFOAM-dev/utils"
)

var ErrPatchMismatch = errors.New("patch cannot be merged")

// AddOptions controls how patches are combined
type AddOptions struct {
	// FoldProcessorCyclics sends the faces of processorCyclic patches, and
	// the non-conformal faces of nonConformalProcessorCyclic patches, into
	// the patch they refer to instead of keeping them as patches of their own
	FoldProcessorCyclics bool

	Logger logrus.FieldLogger
}

func (o *AddOptions) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}

// Add merges m1 into m0 and returns the new mesh with the maps from both
// inputs. Faces paired by couple become internal faces owned by the m0 side;
// a nil couple merges without stitching. Neither input is modified.
func Add(m0, m1 *mesh.PolyMesh, couple CoupleInfo, opts AddOptions) (
	merged *mesh.PolyMesh, am *AddedMap, err error) {
	if couple == nil {
		couple = &StaticCoupleInfo{}
	}
	if err = checkCouple(m0, m1, couple); err != nil {
		return
	}
	var (
		nC0, nC1 = m0.NCells(), m1.NCells()
		nCells   = nC0 + nC1
	)
	am = &AddedMap{
		NCells:          nCells,
		CellMap0:        utils.Identity(nC0),
		CellMap1:        utils.NewRange(nC0, nCells-1),
		OldPatchStarts0: patchStarts(m0),
		OldPatchStarts1: patchStarts(m1),
		OldPatchSizes0:  patchSizes(m0),
		OldPatchSizes1:  patchSizes(m1),
	}

	points := mergePoints(m0, m1, couple, am)

	allPatches, err := mergePatchNames(m0, m1, am, opts)
	if err != nil {
		return nil, nil, err
	}

	faces, owner, neighbour := mergePrimitives(m0, m1, couple, allPatches, am)

	// Processor patches left without faces no longer couple anything.
	// Non-conformal faces are only merged below, so count them on the sources.
	var (
		patchMap = utils.NewFilled(len(allPatches), -1)
		ncCount  = make([]int, len(allPatches))
		kept     []mesh.Patch
	)
	for pi, target := range am.PatchMap0 {
		if target != -1 {
			ncCount[target] += m0.Patches[pi].NumNonConformalFaces()
		}
	}
	for pi, target := range am.PatchMap1 {
		if target != -1 {
			ncCount[target] += m1.Patches[pi].NumNonConformalFaces()
		}
	}
	for pi := range allPatches {
		p := &allPatches[pi]
		if p.Kind.IsProcessor() && p.Size == 0 && ncCount[pi] == 0 {
			opts.logger().WithField("patch", p.Name).Debug("removing empty processor patch")
			continue
		}
		patchMap[pi] = len(kept)
		kept = append(kept, *p)
	}
	am.PatchMap0.RenumberInPlace(patchMap)
	am.PatchMap1.RenumberInPlace(patchMap)

	oldToNew := FaceOrder(owner, neighbour, nCells)
	faces = utils.Reorder(oldToNew, faces)
	owner = utils.Reorder(oldToNew, owner)
	neighbour = utils.Reorder(oldToNew[:len(neighbour)], neighbour)
	am.FaceMap0.RenumberInPlace(oldToNew)
	am.FaceMap1.RenumberInPlace(oldToNew)
	am.NFaces = len(faces)

	mergeNonConformalFaces(m0, m1, kept, am)

	merged = mesh.NewPolyMesh(m0.Name, points, faces, owner, neighbour, kept)
	merged.SetNCells(nCells)
	merged.PointZones = MergeZones(am.NPoints,
		ZoneSide{Zones: m0.PointZones, Map: am.PointMap0},
		ZoneSide{Zones: m1.PointZones, Map: am.PointMap1})
	merged.CellZones = MergeZones(nCells,
		ZoneSide{Zones: m0.CellZones, Map: am.CellMap0},
		ZoneSide{Zones: m1.CellZones, Map: am.CellMap1})
	merged.FaceZones = MergeZones(am.NFaces,
		faceZoneSide(m0, merged, am.FaceMap0, am.CellMap0),
		faceZoneSide(m1, merged, am.FaceMap1, am.CellMap1))
	return
}

// Merge adds two meshes without stitching any faces
func Merge(m0, m1 *mesh.PolyMesh, opts AddOptions) (*mesh.PolyMesh, *AddedMap, error) {
	return Add(m0, m1, nil, opts)
}

func checkCouple(m0, m1 *mesh.PolyMesh, couple CoupleInfo) error {
	var (
		master = couple.MasterFaces()
		slave  = couple.SlaveFaces()
		mPts   = couple.CoupleToMasterPoints()
		sPts   = couple.CoupleToSlavePoints()
	)
	if len(master) != len(slave) {
		return fmt.Errorf("%w: %d master faces and %d slave faces",
			ErrCoupleMismatch, len(master), len(slave))
	}
	if len(mPts) != len(sPts) {
		return fmt.Errorf("%w: %d master point groups and %d slave point groups",
			ErrCoupleMismatch, len(mPts), len(sPts))
	}
	for g := range mPts {
		if len(mPts[g]) == 0 || len(sPts[g]) == 0 {
			return fmt.Errorf("%w: coupled point group %d is empty on one side (%d master, %d slave points)",
				ErrCoupleMismatch, g, len(mPts[g]), len(sPts[g]))
		}
	}
	for i := range master {
		mf, sf := master[i], slave[i]
		if mf < m0.NInternalFaces() || mf >= m0.NFaces() {
			return fmt.Errorf("%w: master face %d of pair %d is not a boundary face",
				ErrCoupleMismatch, mf, i)
		}
		if sf < m1.NInternalFaces() || sf >= m1.NFaces() {
			return fmt.Errorf("%w: slave face %d of pair %d is not a boundary face",
				ErrCoupleMismatch, sf, i)
		}
		n := len(couple.CoupleFace(i))
		if n != len(m0.Faces[mf]) || n != len(m1.Faces[sf]) {
			return fmt.Errorf("%w: pair %d has %d coupled points, master face %d has %d, slave face %d has %d",
				ErrCoupleMismatch, i, n, mf, len(m0.Faces[mf]), sf, len(m1.Faces[sf]))
		}
		for _, g := range couple.CoupleFace(i) {
			if g < 0 || g >= len(mPts) {
				return fmt.Errorf("%w: pair %d refers to point group %d of %d",
					ErrCoupleMismatch, i, g, len(mPts))
			}
		}
	}
	return nil
}

// mergePoints numbers the coupled point groups first, then the remaining
// points of m0 and m1 in their original order
func mergePoints(m0, m1 *mesh.PolyMesh, couple CoupleInfo, am *AddedMap) (points []r3.Vec) {
	var (
		mPts = couple.CoupleToMasterPoints()
		sPts = couple.CoupleToSlavePoints()
	)
	am.PointMap0 = utils.NewFilled(m0.NPoints(), -1)
	am.PointMap1 = utils.NewFilled(m1.NPoints(), -1)
	points = make([]r3.Vec, 0, m0.NPoints()+m1.NPoints())
	for g := range mPts {
		// A point listed in several groups stays with the first
		for _, p := range mPts[g] {
			if am.PointMap0[p] == -1 {
				am.PointMap0[p] = g
			}
		}
		for _, q := range sPts[g] {
			if am.PointMap1[q] == -1 {
				am.PointMap1[q] = g
			}
		}
		points = append(points, m0.Points[mPts[g][0]])
	}
	for p := range m0.Points {
		if am.PointMap0[p] == -1 {
			am.PointMap0[p] = len(points)
			points = append(points, m0.Points[p])
		}
	}
	for q := range m1.Points {
		if am.PointMap1[q] == -1 {
			am.PointMap1[q] = len(points)
			points = append(points, m1.Points[q])
		}
	}
	am.NPoints = len(points)
	return
}

// mergePatchNames builds the merged patch list. Patches of m1 matching an m0
// patch on name and kind share its slot; a name clash with a different kind
// gets the case name of m1 appended.
func mergePatchNames(m0, m1 *mesh.PolyMesh, am *AddedMap, opts AddOptions) (
	allPatches []mesh.Patch, err error) {
	var (
		fold = func(p *mesh.Patch) bool {
			return opts.FoldProcessorCyclics &&
				(p.Kind == mesh.KindProcessorCyclic || p.Kind == mesh.KindNonConformalProcessorCyclic)
		}
		index = make(map[string]int)
		add   = func(p *mesh.Patch) int {
			np := p.Clone()
			np.PolyFaces = nil
			index[np.Name] = len(allPatches)
			allPatches = append(allPatches, np)
			return len(allPatches) - 1
		}
	)
	am.PatchMap0 = utils.NewFilled(len(m0.Patches), -1)
	am.PatchMap1 = utils.NewFilled(len(m1.Patches), -1)

	for pi := range m0.Patches {
		p := &m0.Patches[pi]
		if fold(p) {
			continue
		}
		if _, found := index[p.Name]; found {
			return nil, fmt.Errorf("%w: patch %s listed twice in mesh %s",
				ErrPatchMismatch, p.Name, m0.Name)
		}
		am.PatchMap0[pi] = add(p)
	}
	for pi := range m1.Patches {
		p := &m1.Patches[pi]
		if fold(p) {
			continue
		}
		i, found := index[p.Name]
		if found && allPatches[i].Kind != p.Kind {
			composite := p.Name + "_" + m1.Name
			opts.logger().WithFields(logrus.Fields{
				"patch":     p.Name,
				"kind":      p.Kind,
				"existing":  allPatches[i].Kind,
				"renamedTo": composite,
			}).Info("patch name clash with different type, renaming")
			np := p.Clone()
			np.Name = composite
			if i, found = index[composite]; found && allPatches[i].Kind != p.Kind {
				return nil, fmt.Errorf("%w: patch %s of type %s clashes with existing %s",
					ErrPatchMismatch, composite, p.Kind, allPatches[i].Kind)
			}
			if !found {
				i = add(&np)
			}
		} else if !found {
			i = add(p)
		}
		am.PatchMap1[pi] = i
	}

	referTo := func(meshName string, p *mesh.Patch) (int, error) {
		if i, found := index[p.ReferPatch]; found {
			return i, nil
		}
		return -1, fmt.Errorf("%w: %s patch %s of mesh %s refers to missing patch %q",
			ErrPatchMismatch, p.Kind, p.Name, meshName, p.ReferPatch)
	}
	for pi := range m0.Patches {
		if p := &m0.Patches[pi]; fold(p) {
			if am.PatchMap0[pi], err = referTo(m0.Name, p); err != nil {
				return
			}
		}
	}
	for pi := range m1.Patches {
		if p := &m1.Patches[pi]; fold(p) {
			if am.PatchMap1[pi], err = referTo(m1.Name, p); err != nil {
				return
			}
		}
	}
	return
}

// mergePrimitives lays out the merged faces: internal faces of m0, the
// coupled faces, internal faces of m1, then per merged patch the remaining
// boundary faces of m0 followed by those of m1
func mergePrimitives(m0, m1 *mesh.PolyMesh, couple CoupleInfo, allPatches []mesh.Patch,
	am *AddedMap) (faces [][]int, owner, neighbour []int) {
	var (
		nC0    = m0.NCells()
		nFaces = m0.NFaces() + m1.NFaces() - len(couple.MasterFaces())
	)
	am.FaceMap0 = utils.NewFilled(m0.NFaces(), -1)
	am.FaceMap1 = utils.NewFilled(m1.NFaces(), -1)
	am.FlipFaceMap1 = make([]bool, m1.NFaces())
	faces = make([][]int, 0, nFaces)
	owner = make([]int, 0, nFaces)
	neighbour = make([]int, 0, m0.NInternalFaces()+m1.NInternalFaces()+len(couple.MasterFaces()))

	for f := 0; f < m0.NInternalFaces(); f++ {
		am.FaceMap0[f] = len(faces)
		faces = append(faces, utils.Index(m0.Faces[f]).Renumber(am.PointMap0))
		owner = append(owner, m0.Owner[f])
		neighbour = append(neighbour, m0.Neighbour[f])
	}
	for i, mf := range couple.MasterFaces() {
		sf := couple.SlaveFaces()[i]
		am.FaceMap0[mf] = len(faces)
		am.FaceMap1[sf] = len(faces)
		am.FlipFaceMap1[sf] = true
		faces = append(faces, utils.Index(couple.CoupleFace(i)).Copy())
		owner = append(owner, m0.Owner[mf])
		neighbour = append(neighbour, m1.Owner[sf]+nC0)
	}
	for f := 0; f < m1.NInternalFaces(); f++ {
		am.FaceMap1[f] = len(faces)
		faces = append(faces, utils.Index(m1.Faces[f]).Renumber(am.PointMap1))
		owner = append(owner, m1.Owner[f]+nC0)
		neighbour = append(neighbour, m1.Neighbour[f]+nC0)
	}

	appendPatchFaces := func(m *mesh.PolyMesh, patchMap, faceMap, pointMap utils.Index,
		cellOffset, target int) {
		for pi := range m.Patches {
			if patchMap[pi] != target {
				continue
			}
			p := &m.Patches[pi]
			for f := p.Start; f < p.End(); f++ {
				if faceMap[f] != -1 {
					continue // coupled
				}
				faceMap[f] = len(faces)
				faces = append(faces, utils.Index(m.Faces[f]).Renumber(pointMap))
				owner = append(owner, m.Owner[f]+cellOffset)
			}
		}
	}
	for pi := range allPatches {
		start := len(faces)
		appendPatchFaces(m0, am.PatchMap0, am.FaceMap0, am.PointMap0, 0, pi)
		appendPatchFaces(m1, am.PatchMap1, am.FaceMap1, am.PointMap1, nC0, pi)
		allPatches[pi].Start, allPatches[pi].Size = start, len(faces)-start
	}
	return
}

// mergeNonConformalFaces concatenates the non-conformal faces of the source
// patches of every merged patch, m0 first
func mergeNonConformalFaces(m0, m1 *mesh.PolyMesh, patches []mesh.Patch, am *AddedMap) {
	am.NCFaceMap0 = make([]utils.Index, len(m0.Patches))
	am.NCFaceMap1 = make([]utils.Index, len(m1.Patches))
	collect := func(m *mesh.PolyMesh, patchMap, faceMap utils.Index, ncMap []utils.Index) {
		for pi := range m.Patches {
			p := &m.Patches[pi]
			target := patchMap[pi]
			if target == -1 || len(p.PolyFaces) == 0 {
				continue
			}
			ncMap[pi] = make(utils.Index, len(p.PolyFaces))
			for k, f := range p.PolyFaces {
				ncMap[pi][k] = len(patches[target].PolyFaces)
				patches[target].PolyFaces = append(patches[target].PolyFaces, faceMap[f])
			}
		}
	}
	collect(m0, am.PatchMap0, am.FaceMap0, am.NCFaceMap0)
	collect(m1, am.PatchMap1, am.FaceMap1, am.NCFaceMap1)
}

func patchStarts(m *mesh.PolyMesh) (r utils.Index) {
	r = make(utils.Index, len(m.Patches))
	for i := range m.Patches {
		r[i] = m.Patches[i].Start
	}
	return
}

func patchSizes(m *mesh.PolyMesh) (r utils.Index) {
	r = make(utils.Index, len(m.Patches))
	for i := range m.Patches {
		r[i] = m.Patches[i].Size
	}
	return
}
