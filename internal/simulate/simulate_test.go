package simulate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsar/internal/mjd"
	"github.com/roach88/pulsar/internal/model"
	"github.com/roach88/pulsar/internal/toa"
)

func testSpin(t *testing.T) *model.Spin {
	t.Helper()
	m, err := model.NewSpin(model.SpinParams{
		PSR:       "1748-2021E",
		TimeScale: toa.ScaleUTC,
		PEpoch:    mjd.MustParse("53750.0"),
		F0:        61.485476554,
		F1:        -1.181e-15,
		DM:        224.114,
	})
	require.NoError(t, err)
	return m
}

func TestUniform_OnPulse(t *testing.T) {
	m := testSpin(t)
	tb, err := Uniform(m, Batch{StartMJD: 55000, EndMJD: 55500, Count: 30, FreqMHz: 1400, Obs: "ao"})
	require.NoError(t, err)
	require.Equal(t, 30, tb.Len())
	assert.Equal(t, toa.ScaleUTC, tb.Scale())

	for i := 0; i < tb.Len(); i++ {
		r := tb.Record(i)
		pred, err := m.Predict(r)
		require.NoError(t, err)
		assert.InDelta(t, 0, r.MJD.Sub(pred).Float64(), 1e-9, "row %d", i)
		assert.Equal(t, 1.0, r.ErrorUS)
		assert.Equal(t, "ao", r.Obs)
	}

	first := tb.Record(0).MJD.Float()
	last := tb.Record(29).MJD.Float()
	assert.InDelta(t, 55000, first, 1e-3)
	assert.InDelta(t, 55500, last, 1e-3)
}

func TestUniform_NoiseIsSeeded(t *testing.T) {
	m := testSpin(t)
	b := Batch{StartMJD: 55000, EndMJD: 55100, Count: 10, FreqMHz: 800, Obs: "gbt", ErrorUS: 2, AddNoise: true, Seed: 9}

	a, err := Uniform(m, b)
	require.NoError(t, err)
	c, err := Uniform(m, b)
	require.NoError(t, err)
	assert.Equal(t, a.Records(), c.Records())

	var off int
	for i := 0; i < a.Len(); i++ {
		r := a.Record(i)
		pred, err := m.Predict(r)
		require.NoError(t, err)
		resid := math.Abs(r.MJD.Sub(pred).Float64())
		if resid > 1e-8 {
			off++
		}
		assert.Less(t, resid, 2e-6*8)
	}
	assert.Greater(t, off, 5)
}

func TestMany_ConcatenatesInOrder(t *testing.T) {
	m := testSpin(t)
	tb, err := Many(m,
		Batch{StartMJD: 55000, EndMJD: 55500, Count: 30, FreqMHz: 1400, Obs: "ao"},
		Batch{StartMJD: 55010, EndMJD: 55500, Count: 40, FreqMHz: 800, Obs: "gbt"},
		Batch{StartMJD: 55020, EndMJD: 55500, Count: 50, FreqMHz: 2000, Obs: "@"},
	)
	require.NoError(t, err)
	require.Equal(t, 120, tb.Len())
	assert.Equal(t, "ao", tb.Record(0).Obs)
	assert.Equal(t, "gbt", tb.Record(30).Obs)
	assert.Equal(t, "@", tb.Record(70).Obs)
	assert.Equal(t, []string{"@", "ao", "gbt"}, tb.Observatories())
}

func TestUniform_Errors(t *testing.T) {
	m := testSpin(t)
	_, err := Uniform(m, Batch{StartMJD: 55000, EndMJD: 55100, Count: 0, FreqMHz: 1400, Obs: "ao"})
	assert.Error(t, err)

	_, err = Uniform(m, Batch{StartMJD: 55100, EndMJD: 55000, Count: 3, FreqMHz: 1400, Obs: "ao"})
	assert.Error(t, err)

	_, err = Uniform(m, Batch{StartMJD: 55000, EndMJD: 55100, Count: 3, FreqMHz: 1400})
	assert.True(t, toa.IsMalformed(err))
}
