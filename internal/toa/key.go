package toa

import (
	"cmp"
	"fmt"
	"slices"
)

// Key extracts a sort key from a record.
type Key func(Record) float64

// Built-in keys.
var (
	KeyFreq     Key = func(r Record) float64 { return r.FreqMHz }
	KeyMJDFloat Key = func(r Record) float64 { return r.MJD.Float() }
	KeyError    Key = func(r Record) float64 { return r.ErrorUS }
)

// KeyNames lists the names accepted by KeyByName.
var KeyNames = []string{"freq", "mjd_float", "error"}

// KeyByName resolves a built-in key.
func KeyByName(name string) (Key, error) {
	switch name {
	case "freq":
		return KeyFreq, nil
	case "mjd_float":
		return KeyMJDFloat, nil
	case "error":
		return KeyError, nil
	}
	return nil, fmt.Errorf("unknown sort key %q: must be one of %v", name, KeyNames)
}

// Argsort returns the permutation that orders t by key ascending. Ties keep
// table order, so the result is deterministic.
func (t *Table) Argsort(key Key) []int {
	vals := make([]float64, len(t.records))
	for i, r := range t.records {
		vals[i] = key(r)
	}
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(vals[a], vals[b])
	})
	return idx
}

// SortBy returns t ordered by key, and the permutation that was applied.
func (t *Table) SortBy(key Key) (*Table, []int) {
	perm := t.Argsort(key)
	return t.gather(perm), perm
}
