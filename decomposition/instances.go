package decomposition

import "github.com/ehsanMa86/OpenFOAM-dev/mesh/files"

// CompareInstances orders two mesh instances: -1 when a is newer than b, 0
// when they are the same, +1 when a is older. "constant" is older than any
// time.
func CompareInstances(a, b string) int {
	if a == b {
		return 0
	}
	ta, aIsTime := files.InstanceTime(a)
	tb, bIsTime := files.InstanceTime(b)
	switch {
	case aIsTime && bIsTime && ta == tb:
		return 0
	case files.InstanceLess(b, a):
		return -1
	}
	return 1
}

// UpdateState is what a re-read found on disk
type UpdateState uint8

const (
	UpdateUnchanged UpdateState = iota
	UpdatePointsMoved
	UpdateTopoChanged
)

func (s UpdateState) String() string {
	switch s {
	case UpdateUnchanged:
		return "unchanged"
	case UpdatePointsMoved:
		return "points moved"
	case UpdateTopoChanged:
		return "topology changed"
	}
	return "unknown"
}
