package meshadder

import (
	"sort"

	"github.com/ehsanMa86/OpenFOAM-dev/utils"
)

// FaceOrder returns the old to new face map that puts the internal faces
// [0, len(neighbour)) in upper-triangular order: by lower cell, then by upper
// cell, ties kept in their current order. Boundary faces keep their place.
// Internal faces must already have owner below neighbour.
func FaceOrder(owner, neighbour []int, nCells int) (oldToNew utils.Index) {
	var (
		nInternal = len(neighbour)
		cellFaces = make([][]int, nCells)
	)
	oldToNew = utils.NewFilled(len(owner), -1)
	for f := 0; f < nInternal; f++ {
		lower := owner[f]
		if neighbour[f] < lower {
			lower = neighbour[f]
		}
		cellFaces[lower] = append(cellFaces[lower], f)
	}
	upper := func(f int) int {
		if owner[f] > neighbour[f] {
			return owner[f]
		}
		return neighbour[f]
	}
	next := 0
	for c := range cellFaces {
		faces := cellFaces[c]
		sort.SliceStable(faces, func(a, b int) bool {
			return upper(faces[a]) < upper(faces[b])
		})
		for _, f := range faces {
			oldToNew[f] = next
			next++
		}
	}
	for f := nInternal; f < len(owner); f++ {
		oldToNew[f] = f
	}
	return
}
