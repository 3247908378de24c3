package decomposition

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ehsanMa86/OpenFOAM-dev/mesh"
	"github.com/ehsanMa86/OpenFOAM-dev/utils"
)

// Strategy selects how the non-conformal cyclic faces of a reconstructed
// mesh are put in order. Both give the same order.
type Strategy uint8

const (
	SortStrategy      Strategy = iota // O(n log n) stable sort
	QuadraticStrategy                 // Repeated minimum scan
)

func (s Strategy) String() string {
	if s == QuadraticStrategy {
		return "quadratic"
	}
	return "sort"
}

func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "sort":
		return SortStrategy, nil
	case "quadratic":
		return QuadraticStrategy, nil
	}
	return SortStrategy, fmt.Errorf("unknown non-conformal strategy %q", name)
}

// Order returns the positions of keys in ascending lexicographic order,
// equal keys in their given order
func (s Strategy) Order(keys [][2]int) (order utils.Index) {
	less := func(a, b [2]int) bool {
		return a[0] < b[0] || (a[0] == b[0] && a[1] < b[1])
	}
	order = utils.Identity(len(keys))
	if s != QuadraticStrategy {
		sort.SliceStable(order, func(i, j int) bool {
			return less(keys[order[i]], keys[order[j]])
		})
		return
	}
	used := make([]bool, len(keys))
	for n := range order {
		best := -1
		for i := range keys {
			if !used[i] && (best == -1 || less(keys[i], keys[best])) {
				best = i
			}
		}
		used[best] = true
		order[n] = best
	}
	return
}

// ncCyclicPairs lists the non-conformal cyclic patch pairs of m, the lower
// index patch of each pair first
func ncCyclicPairs(m *mesh.PolyMesh) (pairs [][2]int, err error) {
	for pi := range m.Patches {
		p := &m.Patches[pi]
		if p.Kind != mesh.KindNonConformalCyclic {
			continue
		}
		nbr := m.FindPatch(p.NeighbourPatch)
		if nbr == -1 {
			return nil, fmt.Errorf("non-conformal cyclic %s: neighbour patch %q not found",
				p.Name, p.NeighbourPatch)
		}
		if pi < nbr {
			pairs = append(pairs, [2]int{pi, nbr})
		}
	}
	return
}

type ncCrossKey struct {
	nbrProc, patch int
}

// decomposeNonConformal distributes the non-conformal faces of the complete
// mesh onto the processor meshes. The non-conformal patches of every
// processor are refilled; faces of a cyclic pair whose sides sit on
// different processors go to nonConformalProcessorCyclic patches, created
// only for the processor pairs that share such faces. localFaces maps
// complete faces to processor faces. Returns, per complete patch and
// processor, the complete non-conformal face indices held there.
func decomposeNonConformal(m *mesh.PolyMesh, cellProc []int, ps *ProcSet,
	localFaces []map[int]int) (ncAddr [][][]int, err error) {
	var (
		nProcs = ps.NProcs()
		cross  = make([]map[ncCrossKey][]int, nProcs)
	)
	ncAddr = make([][][]int, len(m.Patches))
	for p := range cross {
		cross[p] = make(map[ncCrossKey][]int)
	}
	for pi := range m.Patches {
		if m.Patches[pi].Kind.IsNonConformal() {
			ncAddr[pi] = make([][]int, nProcs)
		}
	}
	localFace := func(p, f int) (int, error) {
		lf, found := localFaces[p][f]
		if !found {
			return -1, fmt.Errorf("poly face %d of a non-conformal face is not on processor %d", f, p)
		}
		return lf, nil
	}

	pairs, err := ncCyclicPairs(m)
	if err != nil {
		return nil, err
	}
	paired := make(map[int]bool)
	for _, pair := range pairs {
		a, b := &m.Patches[pair[0]], &m.Patches[pair[1]]
		paired[pair[0]], paired[pair[1]] = true, true
		if len(a.PolyFaces) != len(b.PolyFaces) {
			return nil, fmt.Errorf("non-conformal cyclic %s has %d faces, neighbour %s has %d",
				a.Name, len(a.PolyFaces), b.Name, len(b.PolyFaces))
		}
		for k := range a.PolyFaces {
			fa, fb := a.PolyFaces[k], b.PolyFaces[k]
			pa, pb := cellProc[m.Owner[fa]], cellProc[m.Owner[fb]]
			if pa == pb {
				ncAddr[pair[0]][pa] = append(ncAddr[pair[0]][pa], k)
				ncAddr[pair[1]][pa] = append(ncAddr[pair[1]][pa], k)
				continue
			}
			ka, kb := ncCrossKey{pb, pair[0]}, ncCrossKey{pa, pair[1]}
			cross[pa][ka] = append(cross[pa][ka], k)
			cross[pb][kb] = append(cross[pb][kb], k)
		}
	}
	for pi := range m.Patches {
		p := &m.Patches[pi]
		if !p.Kind.IsNonConformal() || paired[pi] {
			continue
		}
		for k, f := range p.PolyFaces {
			proc := cellProc[m.Owner[f]]
			ncAddr[pi][proc] = append(ncAddr[pi][proc], k)
		}
	}

	for proc, pm := range ps.Meshes {
		for lpi := range pm.Patches {
			if pm.Patches[lpi].Kind.IsNonConformal() {
				pm.Patches[lpi].PolyFaces = nil
			}
		}
		for pi := range m.Patches {
			cp := &m.Patches[pi]
			if !cp.Kind.IsNonConformal() {
				continue
			}
			lpi := findOrAppendPatch(ps, proc, cp.Name, func() mesh.Patch {
				np := cp.Clone()
				np.PolyFaces = nil
				return np
			}, pi)
			for _, k := range ncAddr[pi][proc] {
				var lf int
				if lf, err = localFace(proc, cp.PolyFaces[k]); err != nil {
					return nil, fmt.Errorf("patch %s: %w", cp.Name, err)
				}
				pm.Patches[lpi].PolyFaces = append(pm.Patches[lpi].PolyFaces, lf)
			}
		}

		keys := make([]ncCrossKey, 0, len(cross[proc]))
		for key := range cross[proc] {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].nbrProc != keys[j].nbrProc {
				return keys[i].nbrProc < keys[j].nbrProc
			}
			return keys[i].patch < keys[j].patch
		})
		for _, key := range keys {
			cp := &m.Patches[key.patch]
			name := mesh.ProcessorPatchName(proc, key.nbrProc, cp.Name)
			lpi := findOrAppendPatch(ps, proc, name, func() mesh.Patch {
				return mesh.Patch{
					Name:          name,
					Kind:          mesh.KindNonConformalProcessorCyclic,
					MyProc:        proc,
					NeighbProc:    key.nbrProc,
					ReferPatch:    cp.Name,
					OriginalPatch: cp.OriginalPatch,
				}
			}, -1)
			for _, k := range cross[proc][key] {
				var lf int
				if lf, err = localFace(proc, cp.PolyFaces[k]); err != nil {
					return nil, fmt.Errorf("patch %s: %w", name, err)
				}
				pm.Patches[lpi].PolyFaces = append(pm.Patches[lpi].PolyFaces, lf)
			}
			ncAddr[key.patch][proc] = append(ncAddr[key.patch][proc], cross[proc][key]...)
		}
	}
	return
}

// findOrAppendPatch returns the index of the named patch of processor proc,
// appending a new zero size patch at the end of the face range when absent
func findOrAppendPatch(ps *ProcSet, proc int, name string, newPatch func() mesh.Patch,
	completePatch int) int {
	pm := ps.Meshes[proc]
	if lpi := pm.FindPatch(name); lpi != -1 {
		return lpi
	}
	np := newPatch()
	np.Start, np.Size = pm.NFaces(), 0
	pm.Patches = append(pm.Patches, np)
	if len(ps.BoundaryAddressing) > proc {
		ps.BoundaryAddressing[proc] = append(ps.BoundaryAddressing[proc], completePatch)
	}
	return len(pm.Patches) - 1
}

// reconstructNonConformal rebuilds the non-conformal faces of the complete
// mesh from the processors. Faces of cyclic pairs are put in ascending order
// of (owner side poly face, neighbour side poly face), other non-conformal
// faces in ascending poly face order.
func reconstructNonConformal(complete *mesh.PolyMesh, ps *ProcSet, strategy Strategy) error {
	type source struct{ proc, patch int }
	var (
		sources = make([][]source, len(complete.Patches))
		// pos[proc][local patch][k] is the position of local non-conformal
		// face k in its complete patch
		pos = make([][][]int, ps.NProcs())
	)
	for pi := range complete.Patches {
		if complete.Patches[pi].Kind.IsNonConformal() {
			complete.Patches[pi].PolyFaces = nil
		}
	}
	for proc, pm := range ps.Meshes {
		pos[proc] = make([][]int, len(pm.Patches))
		for lpi := range pm.Patches {
			lp := &pm.Patches[lpi]
			if !lp.Kind.IsNonConformal() {
				continue
			}
			target := lp.Name
			if lp.Kind == mesh.KindNonConformalProcessorCyclic {
				target = lp.ReferPatch
			}
			pi := complete.FindPatch(target)
			if pi == -1 || !complete.Patches[pi].Kind.IsNonConformal() {
				return fmt.Errorf("processor %d patch %s: no non-conformal patch %q in the complete mesh",
					proc, lp.Name, target)
			}
			cp := &complete.Patches[pi]
			pos[proc][lpi] = make([]int, len(lp.PolyFaces))
			for k, lf := range lp.PolyFaces {
				pos[proc][lpi][k] = len(cp.PolyFaces)
				cp.PolyFaces = append(cp.PolyFaces, ps.FaceAddressing[proc][lf].Index)
			}
			sources[pi] = append(sources[pi], source{proc, lpi})
		}
	}

	pairs, err := ncCyclicPairs(complete)
	if err != nil {
		return err
	}
	paired := make(map[int]bool)
	for _, pair := range pairs {
		a, b := &complete.Patches[pair[0]], &complete.Patches[pair[1]]
		paired[pair[0]], paired[pair[1]] = true, true
		if len(a.PolyFaces) != len(b.PolyFaces) {
			return fmt.Errorf("non-conformal cyclic %s gathered %d faces, neighbour %s %d",
				a.Name, len(a.PolyFaces), b.Name, len(b.PolyFaces))
		}
		partner := utils.NewFilled(len(a.PolyFaces), -1)
		for _, src := range sources[pair[0]] {
			pm := ps.Meshes[src.proc]
			lp := &pm.Patches[src.patch]
			nbrProc, nbrName := src.proc, lp.NeighbourPatch
			if lp.Kind == mesh.KindNonConformalProcessorCyclic {
				nbrProc, nbrName = lp.NeighbProc, mesh.ProcessorPatchName(lp.NeighbProc, src.proc, b.Name)
			}
			if nbrProc < 0 || nbrProc >= ps.NProcs() {
				return fmt.Errorf("processor %d patch %s: neighbour processor %d out of range",
					src.proc, lp.Name, nbrProc)
			}
			nbr := ps.Meshes[nbrProc].FindPatch(nbrName)
			if nbr == -1 || len(ps.Meshes[nbrProc].Patches[nbr].PolyFaces) != len(lp.PolyFaces) {
				return fmt.Errorf("%w: processor %d patch %s has no matching patch %s on processor %d",
					ErrProcPatchMismatch, src.proc, lp.Name, nbrName, nbrProc)
			}
			for k := range lp.PolyFaces {
				partner[pos[src.proc][src.patch][k]] = pos[nbrProc][nbr][k]
			}
		}
		keys := make([][2]int, len(a.PolyFaces))
		for i := range keys {
			if partner[i] == -1 {
				return fmt.Errorf("non-conformal face %d of %s has no partner", i, a.Name)
			}
			keys[i] = [2]int{a.PolyFaces[i], b.PolyFaces[partner[i]]}
		}
		order := strategy.Order(keys)
		newA, newB := make([]int, len(order)), make([]int, len(order))
		for n, i := range order {
			newA[n], newB[n] = keys[i][0], keys[i][1]
		}
		a.PolyFaces, b.PolyFaces = newA, newB
	}
	for pi := range complete.Patches {
		cp := &complete.Patches[pi]
		if !cp.Kind.IsNonConformal() || paired[pi] {
			continue
		}
		keys := make([][2]int, len(cp.PolyFaces))
		for i, f := range cp.PolyFaces {
			keys[i] = [2]int{f, 0}
		}
		cp.PolyFaces = utils.Gather(strategy.Order(keys), cp.PolyFaces)
	}
	return nil
}

// conformal reports whether none of the meshes carries non-conformal faces
func conformal(meshes []*mesh.PolyMesh) bool {
	for _, m := range meshes {
		if !m.Conformal() {
			return false
		}
	}
	return true
}

// unconform brings the non-conformal faces of the complete and processor
// meshes back in line when only one side carries them
func unconform(complete *mesh.PolyMesh, ps *ProcSet, strategy Strategy) (ncAddr [][][]int, err error) {
	procsConformal, completeConformal := conformal(ps.Meshes), complete.Conformal()
	switch {
	case procsConformal == completeConformal:
		return nil, nil
	case completeConformal:
		err = reconstructNonConformal(complete, ps, strategy)
		return
	}
	cellProc, err := ps.cellProc(complete.NCells())
	if err != nil {
		return nil, err
	}
	return decomposeNonConformal(complete, cellProc, ps, ps.globalToLocalFaces())
}
