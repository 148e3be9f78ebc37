package toa

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsar/internal/mjd"
)

func TestNew_NormalizesAndCopies(t *testing.T) {
	flags := map[string]string{"-FE": "L-wide"}
	recs := []Record{{
		MJD:     mjd.MustParse("55000.5"),
		FreqMHz: 1400,
		Obs:     "  AO ",
		ErrorUS: 1,
		Flags:   flags,
	}}
	tb := mustTable(t, recs)

	r := tb.Record(0)
	assert.Equal(t, "ao", r.Obs)
	v, ok := r.Flag("fe")
	require.True(t, ok)
	assert.Equal(t, "L-wide", v)
	assert.Equal(t, ScaleUTC, tb.Scale())

	// Neither the input nor returned copies alias table storage.
	flags["-FE"] = "changed"
	recs[0].Obs = "gbt"
	r.Flags["fe"] = "mutated"
	again := tb.Record(0)
	assert.Equal(t, "ao", again.Obs)
	assert.Equal(t, "L-wide", again.Flags["fe"])
}

func TestNew_InfiniteFrequencyAllowed(t *testing.T) {
	tb := mustTable(t, []Record{{MJD: mjd.MustParse("55000.1"), FreqMHz: math.Inf(1), Obs: "@", ErrorUS: 1}})
	assert.True(t, math.IsInf(tb.Record(0).FreqMHz, 1))
}

func TestNew_Malformed(t *testing.T) {
	good := Record{MJD: mjd.MustParse("55000.1"), FreqMHz: 1400, Obs: "ao", ErrorUS: 1}
	tests := []struct {
		name  string
		edit  func(*Record)
		field string
	}{
		{"bad_fraction", func(r *Record) { r.MJD.Frac = 1.5 }, "mjd"},
		{"nan_fraction", func(r *Record) { r.MJD.Frac = math.NaN() }, "mjd"},
		{"zero_freq", func(r *Record) { r.FreqMHz = 0 }, "freq"},
		{"nan_freq", func(r *Record) { r.FreqMHz = math.NaN() }, "freq"},
		{"zero_error", func(r *Record) { r.ErrorUS = 0 }, "error"},
		{"inf_error", func(r *Record) { r.ErrorUS = math.Inf(1) }, "error"},
		{"missing_obs", func(r *Record) { r.Obs = " " }, "obs"},
		{"empty_flag", func(r *Record) { r.Flags = map[string]string{"-": "x"} }, "flags"},
		{"duplicate_flag", func(r *Record) { r.Flags = map[string]string{"fe": "a", "-FE": "b"} }, "flags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := good
			tt.edit(&bad)
			_, err := New([]Record{good, bad})
			require.Error(t, err)
			assert.True(t, IsMalformed(err))

			var me *MalformedRecordError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, 1, me.Index)
			assert.Equal(t, tt.field, me.Field)
		})
	}
}

func TestNew_UnknownScale(t *testing.T) {
	_, err := New(nil, WithScale("gps"))
	var me *MalformedRecordError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, -1, me.Index)
	assert.Equal(t, "scale", me.Field)
}

func TestReorder(t *testing.T) {
	tb := mustTable(t, makeRecords(6))
	perm := []int{5, 3, 1, 0, 2, 4}

	out, err := tb.Reorder(perm)
	require.NoError(t, err)
	require.Equal(t, 6, out.Len())
	for i, p := range perm {
		assert.Equal(t, tb.Record(p), out.Record(i))
	}
	assertColumnsAligned(t, out)

	// Copy-on-reorder: the source is untouched.
	assert.Equal(t, makeRecords(6)[0].MJD, tb.Record(0).MJD)
}

func TestReorder_InvalidPermutation(t *testing.T) {
	tb := mustTable(t, makeRecords(4))
	for name, perm := range map[string][]int{
		"short":        {0, 1, 2},
		"long":         {0, 1, 2, 3, 0},
		"out_of_range": {0, 1, 2, 4},
		"negative":     {0, -1, 2, 3},
		"repeat":       {0, 1, 1, 3},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tb.Reorder(perm)
			require.Error(t, err)
			assert.True(t, IsIndexError(err))
		})
	}
}

func TestSelectSliceFilter(t *testing.T) {
	tb := mustTable(t, makeRecords(9))

	sel, err := tb.Select([]int{8, 0, 8})
	require.NoError(t, err)
	assert.Equal(t, 3, sel.Len())
	assert.Equal(t, tb.Record(8), sel.Record(2))
	assertColumnsAligned(t, sel)

	_, err = tb.Select([]int{9})
	assert.True(t, IsIndexError(err))

	sl, err := tb.Slice(2, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, sl.Len())
	assert.Equal(t, tb.Record(2), sl.Record(0))

	_, err = tb.Slice(5, 2)
	assert.True(t, IsIndexError(err))

	ao := tb.Filter(func(r Record) bool { return r.Obs == "ao" })
	assert.Equal(t, 3, ao.Len())
	assert.Equal(t, []string{"ao"}, ao.Observatories())
	assertColumnsAligned(t, ao)
}

func TestSortBy(t *testing.T) {
	tb := mustTable(t, makeRecords(12))

	for _, name := range KeyNames {
		t.Run(name, func(t *testing.T) {
			key, err := KeyByName(name)
			require.NoError(t, err)

			sorted, perm := tb.SortBy(key)
			require.Len(t, perm, tb.Len())
			for i := 1; i < sorted.Len(); i++ {
				assert.LessOrEqual(t, key(sorted.Record(i-1)), key(sorted.Record(i)))
			}
			for i, p := range perm {
				assert.Equal(t, tb.Record(p), sorted.Record(i))
			}
			assertColumnsAligned(t, sorted)
		})
	}

	_, err := KeyByName("obs")
	assert.Error(t, err)
}

func TestColumn(t *testing.T) {
	tb := mustTable(t, makeRecords(3))

	freq, err := tb.Column("freq")
	require.NoError(t, err)
	assert.Equal(t, []float64{1400, 800, 2000}, freq)

	mf, err := tb.Column("mjd_float")
	require.NoError(t, err)
	assert.Equal(t, tb.MJDFloat(), mf)

	errs := tb.Errors()
	assert.InDelta(t, 1e-6, errs[0], 1e-18)

	_, err = tb.Column("nope")
	assert.Error(t, err)
}

func TestConcatenate(t *testing.T) {
	recs := makeRecords(10)
	a := mustTable(t, recs[:4])
	b := mustTable(t, recs[4:])

	c, err := Concatenate(a, b)
	require.NoError(t, err)
	assert.Equal(t, 10, c.Len())
	whole := mustTable(t, recs)
	assert.Equal(t, whole.Records(), c.Records())
	assertColumnsAligned(t, c)

	empty, err := Concatenate()
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	tdb := mustTable(t, recs[:2], WithScale(ScaleTDB))
	_, err = Concatenate(a, tdb)
	require.Error(t, err)
	assert.True(t, IsDimensionMismatch(err))
}

func TestConcatenate_NilTable(t *testing.T) {
	a := mustTable(t, makeRecords(3))

	for _, args := range [][]*Table{{nil}, {a, nil}, {nil, a}} {
		_, err := Concatenate(args...)
		require.Error(t, err)
		assert.True(t, IsMalformed(err))
		assert.Contains(t, err.Error(), "is nil")
	}
}

func TestParseScale(t *testing.T) {
	s, err := ParseScale(" TDB ")
	require.NoError(t, err)
	assert.Equal(t, ScaleTDB, s)

	_, err = ParseScale("tcb")
	assert.Error(t, err)
}

func TestNormalizeObs(t *testing.T) {
	assert.Equal(t, "gbt", NormalizeObs(" GBT "))
	assert.Equal(t, "\u00e5", NormalizeObs("A\u030a"))
	assert.Equal(t, NormalizeObs("\u00c5"), NormalizeObs("a\u030a"))
}
