package meshadder

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
)

var ErrCoupleMismatch = errors.New("coupled faces do not match")

// CoupleInfo describes the faces and points two meshes share. Master faces
// belong to the first mesh of a merge, slave faces to the second. Coupled
// point group g becomes point g of the merged mesh.
type CoupleInfo interface {
	// MasterFaces and SlaveFaces list the coupled face pairs
	MasterFaces() []int
	SlaveFaces() []int
	// CoupleToMasterPoints and CoupleToSlavePoints list, per coupled point
	// group, the points of each mesh collapsing into it
	CoupleToMasterPoints() [][]int
	CoupleToSlavePoints() [][]int
	// CoupleFace is the merged loop of pair i in coupled point group indices,
	// wound as the master face
	CoupleFace(i int) []int
}

// FaceCoupleInfo couples faces by matching point positions face by face.
// Points shared by several coupled faces end up in one group.
type FaceCoupleInfo struct {
	masterFaces, slaveFaces []int
	masterGroups            [][]int
	slaveGroups             [][]int
	coupleFaces             [][]int
}

// NewFaceCoupleInfo pairs masterFaces of m0 with slaveFaces of m1. For every
// pair each master point is matched with the nearest slave point; a match
// further away than tol times the shortest master edge, or a pair whose point
// counts differ, is a configuration error.
func NewFaceCoupleInfo(m0, m1 *mesh.PolyMesh, masterFaces, slaveFaces []int,
	tol float64) (fc *FaceCoupleInfo, err error) {
	if len(masterFaces) != len(slaveFaces) {
		return nil, fmt.Errorf("%w: %d master faces and %d slave faces",
			ErrCoupleMismatch, len(masterFaces), len(slaveFaces))
	}
	var (
		nP0 = m0.NPoints()
		uf  = newUnionFind(nP0 + m1.NPoints())
	)
	for i := range masterFaces {
		mf, sf := masterFaces[i], slaveFaces[i]
		if m0.IsInternalFace(mf) || m1.IsInternalFace(sf) {
			return nil, fmt.Errorf("%w: pair %d couples internal face (master %d, slave %d)",
				ErrCoupleMismatch, i, mf, sf)
		}
		mLoop, sLoop := m0.Faces[mf], m1.Faces[sf]
		if len(mLoop) != len(sLoop) {
			return nil, fmt.Errorf("%w: master face %d has %d points, slave face %d has %d",
				ErrCoupleMismatch, mf, len(mLoop), sf, len(sLoop))
		}
		match, merr := matchLoops(m0.Points, m1.Points, mLoop, sLoop, tol)
		if merr != nil {
			return nil, fmt.Errorf("master face %d, slave face %d: %w", mf, sf, merr)
		}
		for k, p := range mLoop {
			uf.union(p, nP0+sLoop[match[k]])
		}
	}

	fc = &FaceCoupleInfo{
		masterFaces: append([]int(nil), masterFaces...),
		slaveFaces:  append([]int(nil), slaveFaces...),
		coupleFaces: make([][]int, len(masterFaces)),
	}
	// Groups are numbered by first appearance walking the master loops
	rootGroup := make(map[int]int)
	groupOf := func(root int) int {
		g, ok := rootGroup[root]
		if !ok {
			g = len(fc.masterGroups)
			rootGroup[root] = g
			fc.masterGroups = append(fc.masterGroups, nil)
			fc.slaveGroups = append(fc.slaveGroups, nil)
		}
		return g
	}
	for i, mf := range masterFaces {
		loop := m0.Faces[mf]
		fc.coupleFaces[i] = make([]int, len(loop))
		for k, p := range loop {
			fc.coupleFaces[i][k] = groupOf(uf.find(p))
		}
	}
	var (
		seenM = make(map[int]bool)
		seenS = make(map[int]bool)
	)
	for i := range masterFaces {
		for _, p := range m0.Faces[masterFaces[i]] {
			if !seenM[p] {
				seenM[p] = true
				g := rootGroup[uf.find(p)]
				fc.masterGroups[g] = append(fc.masterGroups[g], p)
			}
		}
		for _, q := range m1.Faces[slaveFaces[i]] {
			if !seenS[q] {
				seenS[q] = true
				g := rootGroup[uf.find(nP0+q)]
				fc.slaveGroups[g] = append(fc.slaveGroups[g], q)
			}
		}
	}
	return
}

func (fc *FaceCoupleInfo) MasterFaces() []int            { return fc.masterFaces }
func (fc *FaceCoupleInfo) SlaveFaces() []int             { return fc.slaveFaces }
func (fc *FaceCoupleInfo) CoupleToMasterPoints() [][]int { return fc.masterGroups }
func (fc *FaceCoupleInfo) CoupleToSlavePoints() [][]int  { return fc.slaveGroups }
func (fc *FaceCoupleInfo) CoupleFace(i int) []int        { return fc.coupleFaces[i] }

// matchLoops returns, for each master loop position, the slave loop position
// of the coincident point
func matchLoops(p0, p1 []r3.Vec, mLoop, sLoop []int, tol float64) (match []int, err error) {
	minEdge := math.Inf(1)
	for k := range mLoop {
		d := r3.Norm(r3.Sub(p0[mLoop[k]], p0[mLoop[(k+1)%len(mLoop)]]))
		minEdge = math.Min(minEdge, d)
	}
	var (
		used = make([]bool, len(sLoop))
		lim  = tol * minEdge
	)
	match = make([]int, len(mLoop))
	for k, p := range mLoop {
		best, bestD := -1, math.Inf(1)
		for j, q := range sLoop {
			if d := r3.Norm(r3.Sub(p0[p], p1[q])); d < bestD {
				best, bestD = j, d
			}
		}
		if bestD > lim {
			return nil, fmt.Errorf("%w: point %d is %g from the nearest slave point, tolerance %g",
				ErrCoupleMismatch, p, bestD, lim)
		}
		if used[best] {
			return nil, fmt.Errorf("%w: slave point %d matched twice", ErrCoupleMismatch, sLoop[best])
		}
		used[best] = true
		match[k] = best
	}
	return
}

type unionFind []int

func newUnionFind(n int) (uf unionFind) {
	uf = make(unionFind, n)
	for i := range uf {
		uf[i] = i
	}
	return
}

func (uf unionFind) find(i int) int {
	for uf[i] != i {
		uf[i] = uf[uf[i]]
		i = uf[i]
	}
	return i
}

func (uf unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	// Lowest index as root keeps the grouping independent of union order
	if rb < ra {
		ra, rb = rb, ra
	}
	uf[rb] = ra
}

// StaticCoupleInfo is a CoupleInfo given explicitly, for callers that already
// know the point groups
type StaticCoupleInfo struct {
	Master, Slave             []int
	MasterPoints, SlavePoints [][]int
	Faces                     [][]int
}

func (s *StaticCoupleInfo) MasterFaces() []int            { return s.Master }
func (s *StaticCoupleInfo) SlaveFaces() []int             { return s.Slave }
func (s *StaticCoupleInfo) CoupleToMasterPoints() [][]int { return s.MasterPoints }
func (s *StaticCoupleInfo) CoupleToSlavePoints() [][]int  { return s.SlavePoints }
func (s *StaticCoupleInfo) CoupleFace(i int) []int        { return s.Faces[i] }
