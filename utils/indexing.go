package utils

import (
	"fmt"
	"sort"
)

// Index is a list of labels (point, face, cell or patch indices). Addressing
// maps use -1 for entries that do not exist in the target.
type Index []int

func NewIndex(N int) (I Index) {
	return make(Index, N)
}

// NewFilled returns an Index of length N with every entry set to val
func NewFilled(N, val int) (I Index) {
	I = make(Index, N)
	for i := range I {
		I[i] = val
	}
	return
}

func NewRange(rmin, rmax int) (r Index) {
	var (
		size = rmax - rmin + 1 // INCLUSIVE RANGE
	)
	if size < 0 {
		size = 0
	}
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

// Identity returns [0, 1, ..., N-1]
func Identity(N int) (r Index) {
	return NewRange(0, N-1)
}

func (I Index) Add(val int) (r Index) {
	r = make(Index, len(I))
	for i, ival := range I {
		r[i] = val + ival
	}
	return r
}

func (I Index) Subset(J Index) (r Index) {
	r = make(Index, len(J))
	for j, val := range J {
		r[j] = I[val]
	}
	return
}

func (I Index) Apply(f func(val int) int) (r Index) {
	r = make(Index, len(I))
	for i, val := range I {
		r[i] = f(val)
	}
	return
}

func (I Index) Copy() (r Index) {
	if I == nil {
		return nil
	}
	r = make(Index, len(I))
	copy(r, I)
	return
}

// FindIndex returns the position of the first occurrence of val, or -1
func (I Index) FindIndex(val int) int {
	for i, v := range I {
		if v == val {
			return i
		}
	}
	return -1
}

// Renumber maps every entry through oldToNew. Negative entries are passed
// through untouched.
func (I Index) Renumber(oldToNew Index) (r Index) {
	r = make(Index, len(I))
	for i, val := range I {
		if val >= 0 {
			r[i] = oldToNew[val]
		} else {
			r[i] = val
		}
	}
	return
}

// RenumberInPlace is Renumber without the allocation
func (I Index) RenumberInPlace(oldToNew Index) Index {
	for i, val := range I {
		if val >= 0 {
			I[i] = oldToNew[val]
		}
	}
	return I
}

// Invert turns an old-to-new map into a new-to-old map of length n. Entries
// of the result that nothing maps to are -1.
func (I Index) Invert(n int) (r Index) {
	r = NewFilled(n, -1)
	for old, val := range I {
		if val >= 0 {
			if r[val] != -1 {
				panic(fmt.Sprintf("map is not one-to-one: %d and %d both map to %d",
					r[val], old, val))
			}
			r[val] = old
		}
	}
	return
}

// Max returns the largest entry, or -1 for an empty list
func (I Index) Max() (max int) {
	max = -1
	for _, val := range I {
		if val > max {
			max = val
		}
	}
	return
}

// SortedOrder returns the permutation that stably sorts I ascending
func (I Index) SortedOrder() (order Index) {
	order = Identity(len(I))
	sort.SliceStable(order, func(a, b int) bool {
		return I[order[a]] < I[order[b]]
	})
	return
}

// Reorder places entry i at position oldToNew[i]
func Reorder[T any](oldToNew Index, values []T) (r []T) {
	r = make([]T, len(values))
	for i, val := range values {
		r[oldToNew[i]] = val
	}
	return
}

// Gather returns values[order[0]], values[order[1]], ...
func Gather[T any](order Index, values []T) (r []T) {
	r = make([]T, len(order))
	for i, j := range order {
		r[i] = values[j]
	}
	return
}

// CheckRange verifies that every entry lies in [0, n)
func (I Index) CheckRange(n int) (err error) {
	for i, val := range I {
		if val < 0 || val >= n {
			err = fmt.Errorf("entry %d has value %d, outside of range [0, %d)", i, val, n)
			return
		}
	}
	return
}
