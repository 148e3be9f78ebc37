package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/pulsar/internal/mjd"
	"github.com/roach88/pulsar/internal/toa"
)

// Model predicts arrival times one record at a time.
//
// Implementations must be safe for concurrent use and must not depend on
// anything but the record and their own parameters.
type Model interface {
	// Name identifies the model in logs and stored runs.
	Name() string

	// TimeScale is the scale the model expects TOA timestamps in.
	TimeScale() toa.TimeScale

	// Predict returns the predicted arrival time of the pulse nearest r.
	Predict(r toa.Record) (mjd.Time, error)
}

// BatchModel is a Model with a vectorized path. PredictTable must be
// bitwise identical to calling Predict on each row.
type BatchModel interface {
	Model
	PredictTable(t *toa.Table) ([]mjd.Time, error)
}

// PredictionError wraps a model failure with the row that caused it.
type PredictionError struct {
	Index int
	Err   error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("predict row %d: %v", e.Index, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// Evaluate returns m's prediction for every row of t, in table order.
//
// With workers <= 1 the rows are evaluated serially, through PredictTable
// when m is a BatchModel. With more workers the table is split into
// contiguous chunks and each prediction is written at its own row index, so
// the result never depends on the worker count. On failure the error for
// the lowest failing row is returned.
//
// Fails with *toa.DimensionMismatchError when the table and model time
// scales differ.
func Evaluate(ctx context.Context, t *toa.Table, m Model, workers int) ([]mjd.Time, error) {
	if m.TimeScale() != t.Scale() {
		return nil, &toa.DimensionMismatchError{Op: "evaluate " + m.Name(), Want: m.TimeScale(), Got: t.Scale()}
	}
	n := t.Len()
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		return evaluateSerial(ctx, t, m)
	}

	out := make([]mjd.Time, n)
	errs := make([]error, workers)
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, n)
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					errs[w] = err
					return
				}
				p, err := m.Predict(t.Record(i))
				if err != nil {
					errs[w] = &PredictionError{Index: i, Err: err}
					return
				}
				out[i] = p
			}
		}(w, lo, hi)
	}
	wg.Wait()

	// Chunks are ordered by row, so the first error is the lowest row.
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func evaluateSerial(ctx context.Context, t *toa.Table, m Model) ([]mjd.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bm, ok := m.(BatchModel); ok {
		out, err := bm.PredictTable(t)
		if err != nil {
			return nil, err
		}
		if len(out) != t.Len() {
			return nil, fmt.Errorf("model %s returned %d predictions for %d rows", m.Name(), len(out), t.Len())
		}
		return out, nil
	}

	out := make([]mjd.Time, t.Len())
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := m.Predict(t.Record(i))
		if err != nil {
			return nil, &PredictionError{Index: i, Err: err}
		}
		out[i] = p
	}
	return out, nil
}
