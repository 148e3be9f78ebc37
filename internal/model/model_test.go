package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsar/internal/mjd"
	"github.com/roach88/pulsar/internal/toa"
)

// rowModel predicts obs+1s and fails on records carrying a "fail" flag.
type rowModel struct{}

func (rowModel) Name() string             { return "row" }
func (rowModel) TimeScale() toa.TimeScale { return toa.ScaleUTC }
func (rowModel) Predict(r toa.Record) (mjd.Time, error) {
	if _, ok := r.Flag("fail"); ok {
		return mjd.Time{}, errors.New("boom")
	}
	return r.MJD.AddSeconds(mjd.NewDD(1)), nil
}

func TestEvaluate_WorkerCountDoesNotChangeResult(t *testing.T) {
	m := testSpin(t)
	tb := testTable(t, 61)

	want, err := Evaluate(context.Background(), tb, m, 1)
	require.NoError(t, err)
	for _, w := range []int{0, 2, 3, 7, 61, 200} {
		got, err := Evaluate(context.Background(), tb, m, w)
		require.NoError(t, err)
		assert.Equal(t, want, got, "workers=%d", w)
	}
}

func TestEvaluate_PlainModel(t *testing.T) {
	tb := testTable(t, 5)
	got, err := Evaluate(context.Background(), tb, rowModel{}, 1)
	require.NoError(t, err)
	for i, p := range got {
		assert.InDelta(t, 1, p.Sub(tb.Record(i).MJD).Float64(), 1e-9)
	}
}

func TestEvaluate_ScaleMismatch(t *testing.T) {
	recs := testTable(t, 3).Records()
	tdb, err := toa.New(recs, toa.WithScale(toa.ScaleTDB))
	require.NoError(t, err)

	_, err = Evaluate(context.Background(), tdb, testSpin(t), 1)
	require.Error(t, err)
	assert.True(t, toa.IsDimensionMismatch(err))
}

func TestEvaluate_ReportsLowestFailingRow(t *testing.T) {
	recs := testTable(t, 20).Records()
	recs[13].Flags = map[string]string{"fail": "1"}
	recs[4].Flags = map[string]string{"fail": "1"}
	tb, err := toa.New(recs)
	require.NoError(t, err)

	for _, w := range []int{1, 4} {
		_, err := Evaluate(context.Background(), tb, rowModel{}, w)
		var pe *PredictionError
		require.True(t, errors.As(err, &pe), "workers=%d", w)
		assert.Equal(t, 4, pe.Index)
	}
}

func TestEvaluate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Evaluate(ctx, testTable(t, 10), rowModel{}, 1)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Evaluate(ctx, testTable(t, 10), rowModel{}, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluate_EmptyTable(t *testing.T) {
	tb, err := toa.New(nil)
	require.NoError(t, err)
	got, err := Evaluate(context.Background(), tb, testSpin(t), 4)
	require.NoError(t, err)
	assert.Empty(t, got)
}
