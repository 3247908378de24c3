package mesh

import (
	"fmt"
	"sort"

	"github.com/ehsanMa86/OpenFOAM-dev/utils"
)

// ZoneKind identifies the entity a zone collects
type ZoneKind uint8

const (
	PointZone ZoneKind = iota
	FaceZone
	CellZone
)

func (k ZoneKind) String() string {
	return [...]string{"pointZone", "faceZone", "cellZone"}[k]
}

// Zone is a named, possibly non-contiguous, set of points, faces or cells.
// Face zones may carry a FlipMap, one entry per index; a nil FlipMap marks an
// unoriented zone.
type Zone struct {
	Name    string `json:"name"`
	Indices []int  `json:"labels"`
	FlipMap []bool `json:"flipMap,omitempty"`
}

func (z *Zone) Oriented() bool {
	return z.FlipMap != nil
}

func (z *Zone) Size() int {
	return len(z.Indices)
}

func (z Zone) Clone() (r Zone) {
	r.Name = z.Name
	r.Indices = make([]int, len(z.Indices))
	copy(r.Indices, z.Indices)
	if z.FlipMap != nil {
		r.FlipMap = make([]bool, len(z.FlipMap))
		copy(r.FlipMap, z.FlipMap)
	}
	return
}

// Sort puts the indices in ascending order, flips following
func (z *Zone) Sort() {
	if sort.IntsAreSorted(z.Indices) {
		return
	}
	order := utils.Index(z.Indices).SortedOrder()
	z.Indices = utils.Gather(order, z.Indices)
	if z.FlipMap != nil {
		z.FlipMap = utils.Gather(order, z.FlipMap)
	}
}

// CheckDefinition verifies that every index lies in [0, n) and appears once
func (z *Zone) CheckDefinition(n int) error {
	if z.FlipMap != nil && len(z.FlipMap) != len(z.Indices) {
		return fmt.Errorf("zone %s: flip map size %d does not match zone size %d",
			z.Name, len(z.FlipMap), len(z.Indices))
	}
	seen := make(map[int]bool, len(z.Indices))
	for _, idx := range z.Indices {
		if idx < 0 || idx >= n {
			return fmt.Errorf("zone %s: index %d outside of range [0, %d)", z.Name, idx, n)
		}
		if seen[idx] {
			return fmt.Errorf("zone %s: index %d listed more than once", z.Name, idx)
		}
		seen[idx] = true
	}
	return nil
}

// ZoneList is an ordered collection of zones with unique names
type ZoneList []Zone

func (zl ZoneList) FindIndex(name string) int {
	for i := range zl {
		if zl[i].Name == name {
			return i
		}
	}
	return -1
}

// Find returns the zone with the given name, or nil
func (zl ZoneList) Find(name string) *Zone {
	if i := zl.FindIndex(name); i != -1 {
		return &zl[i]
	}
	return nil
}

func (zl ZoneList) Names() (names []string) {
	names = make([]string, len(zl))
	for i := range zl {
		names[i] = zl[i].Name
	}
	return
}

func (zl ZoneList) Clone() (r ZoneList) {
	if zl == nil {
		return nil
	}
	r = make(ZoneList, len(zl))
	for i := range zl {
		r[i] = zl[i].Clone()
	}
	return
}

// CheckDefinition checks every zone against an entity count of n and the
// collection for duplicate names
func (zl ZoneList) CheckDefinition(n int) error {
	names := make(map[string]bool, len(zl))
	for i := range zl {
		if names[zl[i].Name] {
			return fmt.Errorf("duplicate zone name %s", zl[i].Name)
		}
		names[zl[i].Name] = true
		if err := zl[i].CheckDefinition(n); err != nil {
			return err
		}
	}
	return nil
}

// WhichZones returns, per entity, the zones that hold it
func (zl ZoneList) WhichZones(n int) (entityZones [][]int) {
	entityZones = make([][]int, n)
	for zi := range zl {
		for _, idx := range zl[zi].Indices {
			entityZones[idx] = append(entityZones[idx], zi)
		}
	}
	return
}
