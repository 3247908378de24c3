package mesh

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ehsanMa86/OpenFOAM-dev/utils"
)

var (
	ErrPatchLayout  = errors.New("patches do not cover the boundary face range")
	ErrFaceOrder    = errors.New("internal faces are not in upper-triangular order")
	ErrDuplicateKey = errors.New("duplicate name")
)

// PolyMesh is a face-addressed polyhedral mesh. Faces [0, NInternalFaces) are
// internal and carry a neighbour, the remaining faces are boundary faces laid
// out patch by patch.
type PolyMesh struct {
	Name string // Case name, used to disambiguate clashing patch names on merge

	Points    []r3.Vec
	Faces     [][]int
	Owner     []int
	Neighbour []int
	Patches   []Patch

	PointZones ZoneList
	FaceZones  ZoneList
	CellZones  ZoneList

	nCells int // Cached, derived when not positive
}

// NewPolyMesh assembles a mesh from its primitives. The cell count is
// derived from owner and neighbour.
func NewPolyMesh(name string, points []r3.Vec, faces [][]int, owner, neighbour []int,
	patches []Patch) (m *PolyMesh) {
	m = &PolyMesh{
		Name:      name,
		Points:    points,
		Faces:     faces,
		Owner:     owner,
		Neighbour: neighbour,
		Patches:   patches,
		nCells:    -1,
	}
	return
}

func (m *PolyMesh) NPoints() int        { return len(m.Points) }
func (m *PolyMesh) NFaces() int         { return len(m.Faces) }
func (m *PolyMesh) NInternalFaces() int { return len(m.Neighbour) }

func (m *PolyMesh) NCells() int {
	if m.nCells <= 0 {
		m.nCells = 1 + utils.Index(m.Owner).Max()
		if nc := 1 + utils.Index(m.Neighbour).Max(); nc > m.nCells {
			m.nCells = nc
		}
	}
	return m.nCells
}

// SetNCells overrides the derived cell count. Used by readers that know the
// count up front.
func (m *PolyMesh) SetNCells(n int) {
	m.nCells = n
}

// ResetCellCount forces NCells to rederive from owner and neighbour
func (m *PolyMesh) ResetCellCount() {
	m.nCells = -1
}

func (m *PolyMesh) IsInternalFace(f int) bool {
	return f < len(m.Neighbour)
}

// Cells derives the face list of every cell from owner and neighbour
func (m *PolyMesh) Cells() (cells [][]int) {
	var (
		nCells = m.NCells()
		nCF    = make([]int, nCells)
	)
	for _, c := range m.Owner {
		nCF[c]++
	}
	for _, c := range m.Neighbour {
		nCF[c]++
	}
	cells = make([][]int, nCells)
	for c := range cells {
		cells[c] = make([]int, 0, nCF[c])
	}
	for f, c := range m.Owner {
		cells[c] = append(cells[c], f)
	}
	for f, c := range m.Neighbour {
		cells[c] = append(cells[c], f)
	}
	return
}

// CellCells returns the face-neighbour cells of every cell, ascending
func (m *PolyMesh) CellCells() (cellCells [][]int) {
	cellCells = make([][]int, m.NCells())
	for f, nbr := range m.Neighbour {
		own := m.Owner[f]
		cellCells[own] = append(cellCells[own], nbr)
		cellCells[nbr] = append(cellCells[nbr], own)
	}
	for c := range cellCells {
		sort.Ints(cellCells[c])
	}
	return
}

// WhichPatch returns the patch holding boundary face f, or -1 for an
// internal face
func (m *PolyMesh) WhichPatch(f int) int {
	if f < len(m.Neighbour) {
		return -1
	}
	// Patches are ordered by start, binary search on the end
	pi := sort.Search(len(m.Patches), func(i int) bool {
		return m.Patches[i].End() > f
	})
	for ; pi < len(m.Patches); pi++ {
		if m.Patches[pi].Size > 0 {
			return pi
		}
	}
	return -1
}

// FindPatch returns the index of the named patch, or -1
func (m *PolyMesh) FindPatch(name string) int {
	for i := range m.Patches {
		if m.Patches[i].Name == name {
			return i
		}
	}
	return -1
}

func (m *PolyMesh) PatchNames() (names []string) {
	names = make([]string, len(m.Patches))
	for i := range m.Patches {
		names[i] = m.Patches[i].Name
	}
	return
}

// Conformal reports whether no non-conformal patch carries faces
func (m *PolyMesh) Conformal() bool {
	for i := range m.Patches {
		if m.Patches[i].Kind.IsNonConformal() && len(m.Patches[i].PolyFaces) > 0 {
			return false
		}
	}
	return true
}

// FaceCentre is the mean of the face points
func (m *PolyMesh) FaceCentre(f int) (c r3.Vec) {
	face := m.Faces[f]
	for _, p := range face {
		c = r3.Add(c, m.Points[p])
	}
	if len(face) > 0 {
		c = r3.Scale(1./float64(len(face)), c)
	}
	return
}

// FaceAreaVector is the area-weighted normal of the face, pointing out of
// the owner cell for a correctly wound face
func (m *PolyMesh) FaceAreaVector(f int) (sf r3.Vec) {
	var (
		face = m.Faces[f]
		c    = m.FaceCentre(f)
	)
	for i := range face {
		a := r3.Sub(m.Points[face[i]], c)
		b := r3.Sub(m.Points[face[(i+1)%len(face)]], c)
		sf = r3.Add(sf, r3.Cross(a, b))
	}
	return r3.Scale(0.5, sf)
}

// CellCentres approximates cell centres by the mean of their face centres
func (m *PolyMesh) CellCentres() (cc []r3.Vec) {
	var (
		nCells = m.NCells()
		count  = make([]int, nCells)
	)
	cc = make([]r3.Vec, nCells)
	accumulate := func(c, f int, fc r3.Vec) {
		cc[c] = r3.Add(cc[c], fc)
		count[c]++
	}
	for f := range m.Faces {
		fc := m.FaceCentre(f)
		accumulate(m.Owner[f], f, fc)
		if f < len(m.Neighbour) {
			accumulate(m.Neighbour[f], f, fc)
		}
	}
	for c := range cc {
		if count[c] > 0 {
			cc[c] = r3.Scale(1./float64(count[c]), cc[c])
		}
	}
	return
}

// ReverseFace returns the loop [f0, fn-1, ..., f1], the same face seen from
// the other side
func ReverseFace(face []int) (r []int) {
	r = make([]int, len(face))
	if len(face) == 0 {
		return
	}
	r[0] = face[0]
	for i := 1; i < len(face); i++ {
		r[i] = face[len(face)-i]
	}
	return
}

// Clone returns a deep copy
func (m *PolyMesh) Clone() (r *PolyMesh) {
	r = &PolyMesh{
		Name:       m.Name,
		Points:     make([]r3.Vec, len(m.Points)),
		Faces:      make([][]int, len(m.Faces)),
		Owner:      utils.Index(m.Owner).Copy(),
		Neighbour:  utils.Index(m.Neighbour).Copy(),
		Patches:    make([]Patch, len(m.Patches)),
		PointZones: m.PointZones.Clone(),
		FaceZones:  m.FaceZones.Clone(),
		CellZones:  m.CellZones.Clone(),
		nCells:     m.nCells,
	}
	copy(r.Points, m.Points)
	for f, face := range m.Faces {
		r.Faces[f] = utils.Index(face).Copy()
	}
	for i := range m.Patches {
		r.Patches[i] = m.Patches[i].Clone()
	}
	return
}

// Check validates the topology: array sizes, index ranges, owner below
// neighbour in upper-triangular order with at most one face per cell pair,
// contiguous patches covering the boundary exactly, unique names and valid zones
func (m *PolyMesh) Check() (err error) {
	var (
		nFaces    = len(m.Faces)
		nInternal = len(m.Neighbour)
		nPoints   = len(m.Points)
		nCells    = m.NCells()
	)
	if len(m.Owner) != nFaces {
		return fmt.Errorf("owner size %d does not match face count %d", len(m.Owner), nFaces)
	}
	if nInternal > nFaces {
		return fmt.Errorf("neighbour size %d exceeds face count %d", nInternal, nFaces)
	}
	for f, face := range m.Faces {
		if len(face) < 3 {
			return fmt.Errorf("face %d has %d points", f, len(face))
		}
		if err = utils.Index(face).CheckRange(nPoints); err != nil {
			return fmt.Errorf("face %d: %w", f, err)
		}
	}
	if err = utils.Index(m.Owner).CheckRange(nCells); err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	for f := 0; f < nInternal; f++ {
		own, nbr := m.Owner[f], m.Neighbour[f]
		if own >= nbr {
			return fmt.Errorf("%w: face %d has owner %d and neighbour %d",
				ErrFaceOrder, f, own, nbr)
		}
		if f > 0 {
			prevOwn, prevNbr := m.Owner[f-1], m.Neighbour[f-1]
			if own < prevOwn || (own == prevOwn && nbr <= prevNbr) {
				return fmt.Errorf("%w: face %d (%d, %d) follows (%d, %d)",
					ErrFaceOrder, f, own, nbr, prevOwn, prevNbr)
			}
		}
	}
	if err = m.checkPatches(); err != nil {
		return
	}
	if err = m.PointZones.CheckDefinition(nPoints); err != nil {
		return fmt.Errorf("point zones: %w", err)
	}
	if err = m.FaceZones.CheckDefinition(nFaces); err != nil {
		return fmt.Errorf("face zones: %w", err)
	}
	if err = m.CellZones.CheckDefinition(nCells); err != nil {
		return fmt.Errorf("cell zones: %w", err)
	}
	return
}

func (m *PolyMesh) checkPatches() error {
	var (
		nFaces = len(m.Faces)
		next   = len(m.Neighbour)
		names  = make(map[string]bool, len(m.Patches))
	)
	for i := range m.Patches {
		p := &m.Patches[i]
		if names[p.Name] {
			return fmt.Errorf("%w: patch %s", ErrDuplicateKey, p.Name)
		}
		names[p.Name] = true
		if p.Start != next || p.Size < 0 {
			return fmt.Errorf("%w: patch %s starts at %d size %d, expected start %d",
				ErrPatchLayout, p.Name, p.Start, p.Size, next)
		}
		if p.Kind.IsNonConformal() && p.Size != 0 {
			return fmt.Errorf("non-conformal patch %s holds %d poly faces", p.Name, p.Size)
		}
		if err := utils.Index(p.PolyFaces).CheckRange(nFaces); err != nil {
			return fmt.Errorf("patch %s poly faces: %w", p.Name, err)
		}
		next = p.End()
	}
	if next != nFaces {
		return fmt.Errorf("%w: patches end at %d, mesh has %d faces",
			ErrPatchLayout, next, nFaces)
	}
	for i := range m.Patches {
		p := &m.Patches[i]
		if !p.Kind.IsCyclic() {
			continue
		}
		nbr := m.FindPatch(p.NeighbourPatch)
		if nbr == -1 {
			return fmt.Errorf("cyclic patch %s: neighbour patch %q not found",
				p.Name, p.NeighbourPatch)
		}
		np := &m.Patches[nbr]
		if np.Size != p.Size || len(np.PolyFaces) != len(p.PolyFaces) {
			return fmt.Errorf("cyclic patch %s and neighbour %s differ in size",
				p.Name, np.Name)
		}
	}
	return nil
}

// ReorderPatches returns a copy of the mesh with its patches in the order
// given by newToOld, and the old to new face map. Internal faces keep their
// place.
func (m *PolyMesh) ReorderPatches(newToOld []int) (r *PolyMesh, faceMap utils.Index, err error) {
	if len(newToOld) != len(m.Patches) {
		err = fmt.Errorf("patch order lists %d patches, mesh has %d",
			len(newToOld), len(m.Patches))
		return
	}
	if err = utils.Index(newToOld).CheckRange(len(m.Patches)); err != nil {
		return
	}
	seen := make([]bool, len(m.Patches))
	for _, old := range newToOld {
		if seen[old] {
			err = fmt.Errorf("patch %d listed more than once in patch order", old)
			return
		}
		seen[old] = true
	}

	faceMap = utils.NewFilled(len(m.Faces), -1)
	nInternal := len(m.Neighbour)
	for f := 0; f < nInternal; f++ {
		faceMap[f] = f
	}
	next := nInternal
	patches := make([]Patch, len(m.Patches))
	for newI, oldI := range newToOld {
		p := m.Patches[oldI].Clone()
		for f := p.Start; f < p.End(); f++ {
			faceMap[f] = next + f - p.Start
		}
		p.Start = next
		next += p.Size
		patches[newI] = p
	}
	r = m.Clone()
	r.Patches = patches
	r.Faces = utils.Reorder(faceMap, r.Faces)
	r.Owner = utils.Reorder(faceMap, r.Owner)
	for i := range r.Patches {
		utils.Index(r.Patches[i].PolyFaces).RenumberInPlace(faceMap)
	}
	for i := range r.FaceZones {
		utils.Index(r.FaceZones[i].Indices).RenumberInPlace(faceMap)
		r.FaceZones[i].Sort()
	}
	return
}

// ReorderPatchesByName reorders the patches to follow names, which must list
// every patch exactly once
func (m *PolyMesh) ReorderPatchesByName(names []string) (*PolyMesh, utils.Index, error) {
	if len(names) != len(m.Patches) {
		return nil, nil, fmt.Errorf("patch order lists %d patches, mesh has %d",
			len(names), len(m.Patches))
	}
	newToOld := make([]int, len(names))
	for i, name := range names {
		if newToOld[i] = m.FindPatch(name); newToOld[i] == -1 {
			return nil, nil, fmt.Errorf("patch %q not found in mesh %s", name, m.Name)
		}
	}
	return m.ReorderPatches(newToOld)
}
