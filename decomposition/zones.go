package decomposition

import "github.com/ehsanMa86/OpenFOAM-dev/mesh"

// restrictZones gives processor p the part of every zone of m it holds.
// Zones keep their names and order even when empty. A face held reversed
// has its flip inverted.
func restrictZones(m, pm *mesh.PolyMesh, p int, cellProc, localCell, localPoint []int,
	b *procBuilder) {
	pm.PointZones = restrict(m.PointZones, func(e int) (int, bool) {
		return localPoint[e], false
	})
	pm.CellZones = restrict(m.CellZones, func(e int) (int, bool) {
		if cellProc[e] != p {
			return -1, false
		}
		return localCell[e], false
	})
	pm.FaceZones = restrict(m.FaceZones, func(e int) (int, bool) {
		lf, found := b.localFaces[e]
		if !found {
			return -1, false
		}
		return lf, b.addr[lf].Flipped
	})
}

// restrict maps every zone through local, which returns -1 for entities
// not held and whether the entity's orientation is reversed
func restrict(zones mesh.ZoneList, local func(e int) (int, bool)) (r mesh.ZoneList) {
	r = make(mesh.ZoneList, len(zones))
	for zi := range zones {
		z := &zones[zi]
		nz := mesh.Zone{Name: z.Name, Indices: []int{}}
		if z.FlipMap != nil {
			nz.FlipMap = []bool{}
		}
		for k, e := range z.Indices {
			le, reversed := local(e)
			if le < 0 {
				continue
			}
			nz.Indices = append(nz.Indices, le)
			if nz.FlipMap != nil {
				nz.FlipMap = append(nz.FlipMap, z.FlipMap[k] != reversed)
			}
		}
		nz.Sort()
		r[zi] = nz
	}
	return
}
