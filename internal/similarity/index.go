// Package similarity holds the precomputed top-K item similarity table.
//
// Entries are keyed by catalog row. Each entry lists up to K neighbor rows in
// descending score order; the index never re-sorts them.
package similarity

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEntry is returned when a row has no similarity entry.
	ErrNoEntry = errors.New("no similarity entry")

	// ErrUnsorted is returned when an entry is not in descending score order.
	ErrUnsorted = errors.New("entry not sorted by descending score")

	// ErrRowRange is returned when a row does not exist in the catalog.
	ErrRowRange = errors.New("row out of catalog range")
)

// Neighbor is one (neighbor row, score) pair of an entry.
type Neighbor struct {
	Row   int
	Score float64
}

// Index maps a source row to its ranked neighbors.
type Index struct {
	entries map[int][]Neighbor
	k       int
}

// New validates entries and builds an Index. K is the longest entry length.
func New(entries map[int][]Neighbor) (*Index, error) {
	idx := &Index{entries: make(map[int][]Neighbor, len(entries))}
	for row, nbs := range entries {
		for i := 1; i < len(nbs); i++ {
			if nbs[i].Score > nbs[i-1].Score {
				return nil, fmt.Errorf("row %d position %d: %w", row, i, ErrUnsorted)
			}
		}
		cp := make([]Neighbor, len(nbs))
		copy(cp, nbs)
		idx.entries[row] = cp
		if len(cp) > idx.k {
			idx.k = len(cp)
		}
	}
	return idx, nil
}

// K returns the longest entry length.
func (x *Index) K() int { return x.k }

// Len returns the number of rows with an entry.
func (x *Index) Len() int { return len(x.entries) }

// CheckRows verifies that every source and neighbor row lies in [0, n).
func (x *Index) CheckRows(n int) error {
	for row, nbs := range x.entries {
		if row < 0 || row >= n {
			return fmt.Errorf("source row %d of %d: %w", row, n, ErrRowRange)
		}
		for _, nb := range nbs {
			if nb.Row < 0 || nb.Row >= n {
				return fmt.Errorf("row %d neighbor %d of %d: %w", row, nb.Row, n, ErrRowRange)
			}
		}
	}
	return nil
}

// Neighbors returns the first n neighbors of row in table order. When n
// exceeds the entry length the whole entry is returned. The result is a copy.
func (x *Index) Neighbors(row, n int) ([]Neighbor, error) {
	nbs, ok := x.entries[row]
	if !ok {
		return nil, fmt.Errorf("row %d: %w", row, ErrNoEntry)
	}
	if n < 0 {
		n = 0
	}
	if n > len(nbs) {
		n = len(nbs)
	}
	out := make([]Neighbor, n)
	copy(out, nbs[:n])
	return out, nil
}

// Entries returns a copy of the full table, used when persisting it.
func (x *Index) Entries() map[int][]Neighbor {
	out := make(map[int][]Neighbor, len(x.entries))
	for row, nbs := range x.entries {
		cp := make([]Neighbor, len(nbs))
		copy(cp, nbs)
		out[row] = cp
	}
	return out
}
