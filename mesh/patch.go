package mesh

import (
	"fmt"
	"strings"
)

// PatchKind is the boundary type tag of a patch
type PatchKind uint8

const (
	// Plain boundary types
	KindPatch PatchKind = iota
	KindWall
	KindEmpty
	KindSymmetryPlane

	// Conformal couplings
	KindCyclic          // Face i couples with face i of NeighbourPatch
	KindProcessor       // Inter-partition coupling
	KindProcessorCyclic // Part of a cyclic that crosses a partition cut

	// Non-conformal couplings. These carry no poly faces of their own, the
	// non-conformal faces sit on the poly faces listed in PolyFaces.
	KindNonConformalCyclic
	KindNonConformalProcessorCyclic
	KindNonConformalMappedWall
	KindNonConformalError
)

var patchKindNames = map[PatchKind]string{
	KindPatch:                       "patch",
	KindWall:                        "wall",
	KindEmpty:                       "empty",
	KindSymmetryPlane:               "symmetryPlane",
	KindCyclic:                      "cyclic",
	KindProcessor:                   "processor",
	KindProcessorCyclic:             "processorCyclic",
	KindNonConformalCyclic:          "nonConformalCyclic",
	KindNonConformalProcessorCyclic: "nonConformalProcessorCyclic",
	KindNonConformalMappedWall:      "nonConformalMappedWall",
	KindNonConformalError:           "nonConformalError",
}

func (k PatchKind) String() string {
	if name, ok := patchKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParsePatchKind converts a boundary type name to a PatchKind. Matching is
// case-insensitive.
func ParsePatchKind(name string) (PatchKind, error) {
	lowerName := strings.ToLower(strings.TrimSpace(name))
	for k, n := range patchKindNames {
		if strings.ToLower(n) == lowerName {
			return k, nil
		}
	}
	return KindPatch, fmt.Errorf("unknown patch type %q", name)
}

func (k PatchKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PatchKind) UnmarshalText(text []byte) (err error) {
	*k, err = ParsePatchKind(string(text))
	return
}

// IsProcessor reports processor-like kinds. These only exist to couple
// partitions and are dropped when a merge leaves them empty.
func (k PatchKind) IsProcessor() bool {
	switch k {
	case KindProcessor, KindProcessorCyclic, KindNonConformalProcessorCyclic:
		return true
	}
	return false
}

// IsCyclic reports kinds whose faces pair index-wise with a neighbour patch
func (k PatchKind) IsCyclic() bool {
	return k == KindCyclic || k == KindNonConformalCyclic
}

func (k PatchKind) IsNonConformal() bool {
	switch k {
	case KindNonConformalCyclic, KindNonConformalProcessorCyclic,
		KindNonConformalMappedWall, KindNonConformalError:
		return true
	}
	return false
}

// Patch is a contiguous range [Start, Start+Size) of boundary faces
type Patch struct {
	Name  string    `json:"name"`
	Kind  PatchKind `json:"type"`
	Start int       `json:"startFace"`
	Size  int       `json:"nFaces"`

	// Cyclic and non-conformal cyclic
	NeighbourPatch string `json:"neighbourPatch,omitempty"`

	// Processor-like
	MyProc     int    `json:"myProcNo,omitempty"`
	NeighbProc int    `json:"neighbProcNo,omitempty"`
	ReferPatch string `json:"referPatch,omitempty"`

	// Non-conformal
	OriginalPatch   string `json:"originalPatch,omitempty"`
	NeighbourRegion string `json:"neighbourRegion,omitempty"`
	PolyFaces       []int  `json:"polyFaces,omitempty"`

	// Boundary condition metadata, carried through untouched
	Dict map[string]interface{} `json:"dict,omitempty"`
}

// End is one past the last face of the patch
func (p *Patch) End() int {
	return p.Start + p.Size
}

// NumNonConformalFaces is the number of non-conformal faces of the patch
func (p *Patch) NumNonConformalFaces() int {
	return len(p.PolyFaces)
}

// Clone returns a deep copy
func (p Patch) Clone() (r Patch) {
	r = p
	if p.PolyFaces != nil {
		r.PolyFaces = make([]int, len(p.PolyFaces))
		copy(r.PolyFaces, p.PolyFaces)
	}
	if p.Dict != nil {
		r.Dict = make(map[string]interface{}, len(p.Dict))
		for k, v := range p.Dict {
			r.Dict[k] = v
		}
	}
	return
}

// ProcessorPatchName is the name of the patch on partition myProc that
// couples to partition nbrProc, optionally through a cyclic patch
func ProcessorPatchName(myProc, nbrProc int, through string) string {
	name := fmt.Sprintf("procBoundary%dto%d", myProc, nbrProc)
	if through != "" {
		name += "through" + through
	}
	return name
}
