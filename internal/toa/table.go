package toa

import (
	"fmt"
	"slices"
)

// Table is an immutable, ordered collection of TOA records.
//
// Derived columns are computed once in New and gathered alongside the
// records by every reindexing operation; see the package documentation.
type Table struct {
	scale    TimeScale
	records  []Record
	mjdFloat []float64
}

// Option configures New.
type Option func(*Table)

// WithScale sets the time scale of the table's timestamps. Default ScaleUTC.
func WithScale(s TimeScale) Option {
	return func(t *Table) {
		t.scale = s
	}
}

// New builds a table from records in the given order.
//
// Records are validated and deep-copied; the caller's slice and flag maps
// are never retained. Fails with *MalformedRecordError.
func New(records []Record, opts ...Option) (*Table, error) {
	t := &Table{scale: ScaleUTC}
	for _, opt := range opts {
		opt(t)
	}
	if _, err := ParseScale(string(t.scale)); err != nil {
		return nil, &MalformedRecordError{Index: -1, Field: "scale", Reason: err.Error()}
	}

	t.records = make([]Record, len(records))
	for i, r := range records {
		nr, err := normalize(i, r)
		if err != nil {
			return nil, err
		}
		t.records[i] = nr
	}
	t.mjdFloat = make([]float64, len(t.records))
	for i, r := range t.records {
		t.mjdFloat[i] = r.MJD.Float()
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.records)
}

// Scale returns the table's time scale.
func (t *Table) Scale() TimeScale {
	return t.scale
}

// Record returns a copy of row i. Panics if i is out of range, like a
// slice index.
func (t *Table) Record(i int) Record {
	return t.records[i].clone()
}

// Records returns a copy of all rows in table order.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.records))
	for i, r := range t.records {
		out[i] = r.clone()
	}
	return out
}

// MJDFloat returns the derived float64 MJD column.
func (t *Table) MJDFloat() []float64 {
	return slices.Clone(t.mjdFloat)
}

// Errors returns the per-row uncertainties in seconds.
func (t *Table) Errors() []float64 {
	out := make([]float64, len(t.records))
	for i, r := range t.records {
		out[i] = r.ErrorSeconds()
	}
	return out
}

// Column returns a named numeric column: "freq" (MHz), "mjd_float" or
// "error" (µs).
func (t *Table) Column(name string) ([]float64, error) {
	if name == "mjd_float" {
		return t.MJDFloat(), nil
	}
	key, err := KeyByName(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(t.records))
	for i, r := range t.records {
		out[i] = key(r)
	}
	return out, nil
}

// Observatories returns the distinct observatory codes, sorted.
func (t *Table) Observatories() []string {
	var out []string
	for _, r := range t.records {
		out = append(out, r.Obs)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Reorder returns a table whose row i is row perm[i] of t. perm must be a
// bijection on [0, Len()); otherwise Reorder fails with *IndexError.
func (t *Table) Reorder(perm []int) (*Table, error) {
	n := len(t.records)
	if len(perm) != n {
		return nil, &IndexError{Index: len(perm), Len: n, Reason: "permutation length differs from table length"}
	}
	seen := make([]bool, n)
	for _, p := range perm {
		if p < 0 || p >= n {
			return nil, &IndexError{Index: p, Len: n, Reason: "permutation entry out of range"}
		}
		if seen[p] {
			return nil, &IndexError{Index: p, Len: n, Reason: "permutation repeats an entry"}
		}
		seen[p] = true
	}
	return t.gather(perm), nil
}

// Select returns the rows at the given indices, in that order. Indices may
// repeat. Fails with *IndexError if any index is out of range.
func (t *Table) Select(indices []int) (*Table, error) {
	n := len(t.records)
	for _, i := range indices {
		if i < 0 || i >= n {
			return nil, &IndexError{Index: i, Len: n, Reason: "row index out of range"}
		}
	}
	return t.gather(indices), nil
}

// Slice returns rows [lo, hi).
func (t *Table) Slice(lo, hi int) (*Table, error) {
	n := len(t.records)
	if lo < 0 || hi > n || lo > hi {
		return nil, &IndexError{Index: lo, Len: n, Reason: fmt.Sprintf("invalid slice [%d:%d]", lo, hi)}
	}
	idx := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		idx = append(idx, i)
	}
	return t.gather(idx), nil
}

// Filter returns the rows for which keep reports true, in table order.
// keep receives a copy of each record.
func (t *Table) Filter(keep func(Record) bool) *Table {
	var idx []int
	for i, r := range t.records {
		if keep(r.clone()) {
			idx = append(idx, i)
		}
	}
	return t.gather(idx)
}

// gather builds a table from already-validated rows. Every column goes
// through the same index slice.
func (t *Table) gather(idx []int) *Table {
	out := &Table{
		scale:    t.scale,
		records:  make([]Record, len(idx)),
		mjdFloat: make([]float64, len(idx)),
	}
	for i, j := range idx {
		out.records[i] = t.records[j].clone()
		out.mjdFloat[i] = t.mjdFloat[j]
	}
	return out
}

// Concatenate returns the rows of each table in argument order. All tables
// must share a time scale; otherwise Concatenate fails with
// *DimensionMismatchError. A nil table fails with *MalformedRecordError.
// With no arguments it returns an empty UTC table.
func Concatenate(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return New(nil)
	}
	for i, tb := range tables {
		if tb == nil {
			return nil, &MalformedRecordError{Index: -1, Field: "tables", Reason: fmt.Sprintf("table %d is nil", i)}
		}
	}
	out := &Table{scale: tables[0].scale}
	for _, tb := range tables {
		if tb.scale != out.scale {
			return nil, &DimensionMismatchError{Op: "concatenate", Want: out.scale, Got: tb.scale}
		}
		for i, r := range tb.records {
			out.records = append(out.records, r.clone())
			out.mjdFloat = append(out.mjdFloat, tb.mjdFloat[i])
		}
	}
	if out.records == nil {
		out.records = []Record{}
		out.mjdFloat = []float64{}
	}
	return out, nil
}
