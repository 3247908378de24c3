package mesh

import (
	"fmt"
	"sort"
)

// Stats summarises the size of a mesh
type Stats struct {
	NPoints        int
	NFaces         int
	NInternalFaces int
	NCells         int
	FaceShapes     map[int]int // Face point count -> number of faces
	PatchSizes     map[string]int
	NonConformal   map[string]int // Non-conformal faces per non-conformal patch
	ZoneSizes      map[string]int // "<kind>/<name>" -> number of entries
}

func (m *PolyMesh) Stats() (s Stats) {
	s = Stats{
		NPoints:        m.NPoints(),
		NFaces:         m.NFaces(),
		NInternalFaces: m.NInternalFaces(),
		NCells:         m.NCells(),
		FaceShapes:     make(map[int]int),
		PatchSizes:     make(map[string]int, len(m.Patches)),
		NonConformal:   make(map[string]int),
		ZoneSizes:      make(map[string]int),
	}
	for _, face := range m.Faces {
		s.FaceShapes[len(face)]++
	}
	for i := range m.Patches {
		p := &m.Patches[i]
		s.PatchSizes[p.Name] = p.Size
		if p.Kind.IsNonConformal() {
			s.NonConformal[p.Name] = len(p.PolyFaces)
		}
	}
	for kind, zl := range map[ZoneKind]ZoneList{
		PointZone: m.PointZones, FaceZone: m.FaceZones, CellZone: m.CellZones} {
		for i := range zl {
			s.ZoneSizes[kind.String()+"/"+zl[i].Name] = zl[i].Size()
		}
	}
	return
}

// PrintStatistics prints mesh statistics
func (m *PolyMesh) PrintStatistics() {
	s := m.Stats()
	fmt.Printf("Mesh Statistics: %s\n", m.Name)
	fmt.Printf("  Points: %d\n", s.NPoints)
	fmt.Printf("  Cells: %d\n", s.NCells)
	fmt.Printf("  Faces: %d\n", s.NFaces)
	fmt.Printf("  Internal faces: %d\n", s.NInternalFaces)

	shapes := make([]int, 0, len(s.FaceShapes))
	for n := range s.FaceShapes {
		shapes = append(shapes, n)
	}
	sort.Ints(shapes)
	fmt.Printf("  Faces by point count:\n")
	for _, n := range shapes {
		fmt.Printf("    %d: %d\n", n, s.FaceShapes[n])
	}

	fmt.Printf("  Patches:\n")
	for i := range m.Patches {
		p := &m.Patches[i]
		if p.Kind.IsNonConformal() {
			fmt.Printf("    %-30s %-28s %d non-conformal faces\n", p.Name, p.Kind, len(p.PolyFaces))
		} else {
			fmt.Printf("    %-30s %-28s %d faces\n", p.Name, p.Kind, p.Size)
		}
	}
	for _, zl := range []struct {
		kind  ZoneKind
		zones ZoneList
	}{{PointZone, m.PointZones}, {FaceZone, m.FaceZones}, {CellZone, m.CellZones}} {
		for i := range zl.zones {
			fmt.Printf("  %s %s: %d\n", zl.kind, zl.zones[i].Name, zl.zones[i].Size())
		}
	}
}
