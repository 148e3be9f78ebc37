package residuals

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/roach88/pulsar/internal/model"
	"github.com/roach88/pulsar/internal/stats"
	"github.com/roach88/pulsar/internal/toa"
)

// Options controls Compute.
type Options struct {
	// SubtractMean removes the weighted mean residual from every row.
	SubtractMean bool

	// Workers is the model evaluation parallelism; <= 1 evaluates serially.
	// The result is identical for every value.
	Workers int

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// NonFiniteError reports a residual that came out NaN or infinite.
type NonFiniteError struct {
	Index int
	Value float64
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("non-finite residual %v at row %d", e.Value, e.Index)
}

// Residuals is an immutable residual snapshot, index-aligned with the table
// it was computed from.
type Residuals struct {
	model      string
	resids     []float64
	errs       []float64
	mean       float64
	subtracted bool
}

// Compute returns the time residuals of t under m, in seconds.
//
// Fails with *toa.DimensionMismatchError if the time scales differ, with
// *toa.EmptyTableError if a mean is requested over zero rows, and with
// *NonFiniteError if any residual is not finite. No partial result is ever
// returned.
func Compute(ctx context.Context, t *toa.Table, m model.Model, opts Options) (*Residuals, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if m.TimeScale() != t.Scale() {
		return nil, &toa.DimensionMismatchError{Op: "residuals " + m.Name(), Want: m.TimeScale(), Got: t.Scale()}
	}
	if opts.SubtractMean && t.Len() == 0 {
		return nil, &toa.EmptyTableError{Op: "mean subtraction"}
	}

	preds, err := model.Evaluate(ctx, t, m, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("evaluate model %s: %w", m.Name(), err)
	}

	// Pass 1: per-row residuals.
	resids := make([]float64, t.Len())
	for i := range resids {
		r := t.Record(i).MJD.Sub(preds[i]).Float64()
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, &NonFiniteError{Index: i, Value: r}
		}
		resids[i] = r
	}
	errs := t.Errors()

	out := &Residuals{
		model:  m.Name(),
		resids: resids,
		errs:   errs,
	}

	// Pass 2: uniform weighted-mean removal.
	if opts.SubtractMean {
		mean, err := stats.WeightedMean(resids, errs)
		if err != nil {
			return nil, fmt.Errorf("weighted mean: %w", err)
		}
		for i := range resids {
			resids[i] -= mean
			if math.IsNaN(resids[i]) || math.IsInf(resids[i], 0) {
				return nil, &NonFiniteError{Index: i, Value: resids[i]}
			}
		}
		out.mean = mean
		out.subtracted = true
	}

	logger.Debug("residuals computed",
		"model", m.Name(),
		"toas", t.Len(),
		"subtract_mean", opts.SubtractMean,
		"mean", out.mean,
	)

	return out, nil
}

// Len returns the number of residuals.
func (r *Residuals) Len() int { return len(r.resids) }

// ModelName returns the name of the model the residuals were computed under.
func (r *Residuals) ModelName() string { return r.model }

// TimeResids returns a copy of the residuals in seconds.
func (r *Residuals) TimeResids() []float64 { return slices.Clone(r.resids) }

// Errors returns a copy of the per-row uncertainties in seconds.
func (r *Residuals) Errors() []float64 { return slices.Clone(r.errs) }

// Mean returns the weighted mean that was subtracted, or 0.
func (r *Residuals) Mean() float64 { return r.mean }

// MeanSubtracted reports whether the weighted mean was removed.
func (r *Residuals) MeanSubtracted() bool { return r.subtracted }

// Chi2 returns the chi-squared of the residuals against their uncertainties.
func (r *Residuals) Chi2() (float64, error) {
	return stats.Chi2(r.resids, r.errs)
}

// DOF returns the degrees of freedom for nfree fitted parameters. Mean
// subtraction consumes one more.
func (r *Residuals) DOF(nfree int) int {
	dof := len(r.resids) - nfree
	if r.subtracted {
		dof--
	}
	return dof
}

// ReducedChi2 returns Chi2()/DOF(nfree).
func (r *Residuals) ReducedChi2(nfree int) (float64, error) {
	dof := r.DOF(nfree)
	if dof <= 0 {
		return 0, fmt.Errorf("reduced chi2: %d degrees of freedom", dof)
	}
	chi2, err := r.Chi2()
	if err != nil {
		return 0, err
	}
	return chi2 / float64(dof), nil
}

// RMSWeighted returns the weighted RMS of the residuals about their
// weighted mean, in seconds.
func (r *Residuals) RMSWeighted() (float64, error) {
	return stats.WeightedRMS(r.resids, r.errs)
}

// Permute returns a snapshot realigned so that row i is row perm[i] of r,
// matching toa.Table.Reorder. Fails with *toa.IndexError.
func (r *Residuals) Permute(perm []int) (*Residuals, error) {
	n := len(r.resids)
	if len(perm) != n {
		return nil, &toa.IndexError{Index: len(perm), Len: n, Reason: "permutation length differs from residual length"}
	}
	seen := make([]bool, n)
	out := &Residuals{
		model:      r.model,
		resids:     make([]float64, n),
		errs:       make([]float64, n),
		mean:       r.mean,
		subtracted: r.subtracted,
	}
	for i, p := range perm {
		if p < 0 || p >= n || seen[p] {
			return nil, &toa.IndexError{Index: p, Len: n, Reason: "not a permutation"}
		}
		seen[p] = true
		out.resids[i] = r.resids[p]
		out.errs[i] = r.errs[p]
	}
	return out, nil
}
