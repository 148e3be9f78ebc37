package harness

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/pulsar/internal/residuals"
	"github.com/roach88/pulsar/internal/toa"
)

// workerCounts are compared against serial evaluation by the workers check.
var workerCounts = []int{2, 4, 7}

// tracker accumulates one check's trials, keeping the first failure.
type tracker struct {
	c   CheckResult
	tol float64
}

func newTracker(name string, tol float64) *tracker {
	return &tracker{c: CheckResult{Name: name, Pass: true}, tol: tol}
}

func (t *tracker) fail(format string, args ...any) {
	if t.c.Pass {
		t.c.Pass = false
		t.c.Message = fmt.Sprintf(format, args...)
	}
}

// chi2 compares two chi-squared values against the relative tolerance.
func (t *tracker) chi2(trial int, want, got float64) {
	d := math.Abs(want - got)
	t.c.MaxChi2Delta = math.Max(t.c.MaxChi2Delta, d)
	if d > t.tol*math.Max(1, math.Abs(want)) {
		t.fail("trial %d: chi2 %v differs from %v by %g", trial, got, want, d)
	}
}

// resids requires got to equal want exactly, row by row.
func (t *tracker) resids(trial int, want, got []float64) {
	if len(want) != len(got) {
		t.fail("trial %d: %d residuals, expected %d", trial, len(got), len(want))
		return
	}
	for i := range want {
		if want[i] != got[i] {
			t.fail("trial %d: row %d residual %v, expected %v", trial, i, got[i], want[i])
			return
		}
	}
}

func (t *tracker) result() CheckResult { return t.c }

// realigned returns the baseline residuals reordered by perm.
func realigned(base *residuals.Residuals, perm []int) ([]float64, error) {
	p, err := base.Permute(perm)
	if err != nil {
		return nil, err
	}
	return p.TimeResids(), nil
}

// reorderCompare computes residuals on the table reordered by perm and
// checks them against the realigned baseline.
func (h *Harness) reorderCompare(ctx context.Context, tr *tracker, trial int, perm []int) {
	tr.c.Trials++

	reordered, err := h.table.Reorder(perm)
	if err != nil {
		tr.fail("trial %d: reorder: %v", trial, err)
		return
	}
	r, err := h.compute(ctx, reordered, 0)
	if err != nil {
		tr.fail("trial %d: %v", trial, err)
		return
	}
	want, err := realigned(h.base, perm)
	if err != nil {
		tr.fail("trial %d: %v", trial, err)
		return
	}
	tr.resids(trial, want, r.TimeResids())

	chi2, err := r.Chi2()
	if err != nil {
		tr.fail("trial %d: %v", trial, err)
		return
	}
	tr.chi2(trial, h.baseChi2, chi2)
}

// checkPermutation shuffles the table with seeded random permutations.
func (h *Harness) checkPermutation(ctx context.Context) CheckResult {
	tr := newTracker(CheckPermutation, h.scenario.tolerance())
	for trial := 0; trial < h.scenario.permutations(); trial++ {
		h.reorderCompare(ctx, tr, trial, h.rng.Perm(h.table.Len()))
	}
	return tr.result()
}

// checkSort reorders the table by a sort key.
func (h *Harness) checkSort(ctx context.Context, name string) CheckResult {
	tr := newTracker(CheckSort+":"+name, h.scenario.tolerance())
	key, err := toa.KeyByName(name)
	if err != nil {
		tr.fail("%v", err)
		return tr.result()
	}
	h.reorderCompare(ctx, tr, 0, h.table.Argsort(key))
	return tr.result()
}

// checkIdempotence recomputes the baseline.
func (h *Harness) checkIdempotence(ctx context.Context) CheckResult {
	tr := newTracker(CheckIdempotence, h.scenario.tolerance())
	tr.c.Trials++

	r, err := h.compute(ctx, h.table, 0)
	if err != nil {
		tr.fail("%v", err)
		return tr.result()
	}
	tr.resids(0, h.base.TimeResids(), r.TimeResids())
	chi2, err := r.Chi2()
	if err != nil {
		tr.fail("%v", err)
		return tr.result()
	}
	if chi2 != h.baseChi2 {
		tr.fail("chi2 %v, expected %v", chi2, h.baseChi2)
	}
	return tr.result()
}

// checkConcatenation splits the table by observatory. Without mean
// subtraction the residuals of the concatenation are the concatenated
// residuals of the parts; with it they differ by one uniform shift.
func (h *Harness) checkConcatenation(ctx context.Context) CheckResult {
	tr := newTracker(CheckConcatenation, h.scenario.tolerance())

	var (
		parts []*toa.Table
		want  []float64
	)
	for _, obs := range h.table.Observatories() {
		part := h.table.Filter(func(r toa.Record) bool { return r.Obs == obs })
		r, err := h.computeMean(ctx, part, 0, false)
		if err != nil {
			tr.fail("part %s: %v", obs, err)
			return tr.result()
		}
		parts = append(parts, part)
		want = append(want, r.TimeResids()...)
		tr.c.Trials++
	}

	joined, err := toa.Concatenate(parts...)
	if err != nil {
		tr.fail("concatenate: %v", err)
		return tr.result()
	}
	raw, err := h.computeMean(ctx, joined, 0, false)
	if err != nil {
		tr.fail("%v", err)
		return tr.result()
	}
	tr.resids(0, want, raw.TimeResids())

	if joined.Len() == 0 {
		return tr.result()
	}
	centered, err := h.computeMean(ctx, joined, 0, true)
	if err != nil {
		tr.fail("%v", err)
		return tr.result()
	}
	shifted := raw.TimeResids()
	for i := range shifted {
		shifted[i] -= centered.Mean()
	}
	tr.resids(1, shifted, centered.TimeResids())
	return tr.result()
}

// checkWorkers compares parallel model evaluation with serial.
func (h *Harness) checkWorkers(ctx context.Context) CheckResult {
	tr := newTracker(CheckWorkers, h.scenario.tolerance())
	for trial, w := range workerCounts {
		tr.c.Trials++
		r, err := h.compute(ctx, h.table, w)
		if err != nil {
			tr.fail("workers=%d: %v", w, err)
			continue
		}
		tr.resids(trial, h.base.TimeResids(), r.TimeResids())
		chi2, err := r.Chi2()
		if err != nil {
			tr.fail("workers=%d: %v", w, err)
			continue
		}
		tr.chi2(trial, h.baseChi2, chi2)
	}
	return tr.result()
}
