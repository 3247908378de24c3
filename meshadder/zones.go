package meshadder

import (
	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
	"github.com/ehsanMa86/OpenFOAM-dev/utils"
)

// ZoneSide is one input to a zone merge: its zones and the map taking its
// entities to the merged entities
type ZoneSide struct {
	Zones mesh.ZoneList
	Map   utils.Index
	// Flip reports whether source face i is reversed in the merged mesh.
	// Nil for point and cell zones.
	Flip func(i int) bool
}

type zoneEntry struct {
	zone int
	flip bool
}

// MergeZones merges the zones of all sides into zones over n entities. Zones
// with the same name become one zone. An entity may be in several zones; the
// first is held in a primary slot, the rest in an overflow list. Merged zones
// list their entities in ascending order.
func MergeZones(n int, sides ...ZoneSide) (merged mesh.ZoneList) {
	var (
		index    = make(map[string]int)
		oriented []bool
		primary  = make([]zoneEntry, n)
		overflow = make(map[int][]zoneEntry)
	)
	for e := range primary {
		primary[e].zone = -1
	}
	add := func(e int, entry zoneEntry) {
		switch {
		case primary[e].zone == -1:
			primary[e] = entry
			return
		case primary[e].zone == entry.zone:
			return
		}
		for _, o := range overflow[e] {
			if o.zone == entry.zone {
				return
			}
		}
		overflow[e] = append(overflow[e], entry)
	}

	for _, side := range sides {
		for zi := range side.Zones {
			z := &side.Zones[zi]
			id, found := index[z.Name]
			if !found {
				id = len(merged)
				index[z.Name] = id
				merged = append(merged, mesh.Zone{Name: z.Name})
				oriented = append(oriented, false)
			}
			oriented[id] = oriented[id] || z.Oriented()
			for k, e := range z.Indices {
				ne := side.Map[e]
				if ne < 0 {
					continue
				}
				entry := zoneEntry{zone: id}
				if z.FlipMap != nil {
					entry.flip = z.FlipMap[k]
				}
				if side.Flip != nil && side.Flip(e) {
					entry.flip = !entry.flip
				}
				add(ne, entry)
			}
		}
	}

	sizes := make([]int, len(merged))
	for e := range primary {
		if primary[e].zone != -1 {
			sizes[primary[e].zone]++
		}
	}
	for _, entries := range overflow {
		for _, o := range entries {
			sizes[o.zone]++
		}
	}
	for id := range merged {
		merged[id].Indices = make([]int, 0, sizes[id])
		if oriented[id] {
			merged[id].FlipMap = make([]bool, 0, sizes[id])
		}
	}
	place := func(e int, entry zoneEntry) {
		z := &merged[entry.zone]
		z.Indices = append(z.Indices, e)
		if z.FlipMap != nil {
			z.FlipMap = append(z.FlipMap, entry.flip)
		}
	}
	for e := range primary {
		if primary[e].zone == -1 {
			continue
		}
		place(e, primary[e])
		for _, o := range overflow[e] {
			place(e, o)
		}
	}
	return
}

// faceZoneSide flips a zone face when the merged owner is not the image of
// its source owner
func faceZoneSide(m, merged *mesh.PolyMesh, faceMap, cellMap utils.Index) ZoneSide {
	return ZoneSide{
		Zones: m.FaceZones,
		Map:   faceMap,
		Flip: func(f int) bool {
			return merged.Owner[faceMap[f]] != cellMap[m.Owner[f]]
		},
	}
}
