package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Standard meshes shared by the tests of the mesh, merge and decomposition
// packages. All of them are hex boxes built with NewBoxMesh.

// MustBox is NewBoxMesh that panics on error
func MustBox(name string, nx, ny, nz int, lo, hi r3.Vec) *PolyMesh {
	m, err := NewBoxMesh(name, nx, ny, nz, lo, hi)
	if err != nil {
		panic(err)
	}
	return m
}

// StripMesh is a row of n unit cubes along x
func StripMesh(n int) *PolyMesh {
	return MustBox(fmt.Sprintf("strip%d", n), n, 1, 1,
		r3.Vec{}, r3.Vec{X: float64(n), Y: 1, Z: 1})
}

// AddTestZones attaches a point, face and cell zone to m: the points with
// x == 0, the internal faces flipped on every other entry, and the even
// numbered cells
func AddTestZones(m *PolyMesh) *PolyMesh {
	var pz, fz, cz Zone
	pz.Name = "inlet-points"
	for p, pt := range m.Points {
		if pt.X == 0 {
			pz.Indices = append(pz.Indices, p)
		}
	}
	fz.Name = "internal-faces"
	fz.FlipMap = []bool{}
	for f := 0; f < m.NInternalFaces(); f++ {
		fz.Indices = append(fz.Indices, f)
		fz.FlipMap = append(fz.FlipMap, f%2 == 1)
	}
	cz.Name = "even-cells"
	for c := 0; c < m.NCells(); c += 2 {
		cz.Indices = append(cz.Indices, c)
	}
	m.PointZones = append(m.PointZones, pz)
	m.FaceZones = append(m.FaceZones, fz)
	m.CellZones = append(m.CellZones, cz)
	return m
}

// MakeCyclic turns patches a and b of m into a cyclic pair. Both must have
// the same size and face i of a must map onto face i of b.
func MakeCyclic(m *PolyMesh, a, b string) *PolyMesh {
	ia, ib := m.FindPatch(a), m.FindPatch(b)
	if ia == -1 || ib == -1 || m.Patches[ia].Size != m.Patches[ib].Size {
		panic(fmt.Sprintf("cannot couple patches %s and %s", a, b))
	}
	m.Patches[ia].Kind, m.Patches[ia].NeighbourPatch = KindCyclic, b
	m.Patches[ib].Kind, m.Patches[ib].NeighbourPatch = KindCyclic, a
	return m
}

// AddNonConformalCyclic appends a non-conformal cyclic pair sitting on the
// faces of patches a and b. Face i of a is paired with face (i+shift) of b,
// so the pairing does not follow the poly face order.
func AddNonConformalCyclic(m *PolyMesh, name, a, b string, shift int) *PolyMesh {
	ia, ib := m.FindPatch(a), m.FindPatch(b)
	pa, pb := m.Patches[ia], m.Patches[ib]
	var fa, fb []int
	for i := 0; i < pa.Size; i++ {
		fa = append(fa, pa.Start+i)
		fb = append(fb, pb.Start+(i+shift)%pb.Size)
	}
	nameA, nameB := name+"_"+a, name+"_"+b
	m.Patches = append(m.Patches,
		Patch{Name: nameA, Kind: KindNonConformalCyclic, Start: m.NFaces(),
			NeighbourPatch: nameB, OriginalPatch: a, PolyFaces: fa},
		Patch{Name: nameB, Kind: KindNonConformalCyclic, Start: m.NFaces(),
			NeighbourPatch: nameA, OriginalPatch: b, PolyFaces: fb},
	)
	return m
}

// AddNonConformalError appends an error patch over every face of patch orig
func AddNonConformalError(m *PolyMesh, name, orig string) *PolyMesh {
	p := m.Patches[m.FindPatch(orig)]
	var faces []int
	for f := p.Start; f < p.End(); f++ {
		faces = append(faces, f)
	}
	m.Patches = append(m.Patches, Patch{Name: name, Kind: KindNonConformalError,
		Start: m.NFaces(), OriginalPatch: orig, PolyFaces: faces})
	return m
}
