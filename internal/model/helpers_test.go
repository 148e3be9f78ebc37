package model

import (
	"testing"

	"github.com/roach88/pulsar/internal/mjd"
	"github.com/roach88/pulsar/internal/toa"
)

func testSpin(t *testing.T) *Spin {
	t.Helper()
	m, err := NewSpin(SpinParams{
		PSR:       "1748-2021E",
		TimeScale: toa.ScaleUTC,
		PEpoch:    mjd.MustParse("53750.0"),
		F0:        61.485476554,
		F1:        -1.181e-15,
		DM:        224.114,
		Jumps:     map[string]float64{"GBT": 1.5e-6},
	})
	if err != nil {
		t.Fatalf("NewSpin() failed: %v", err)
	}
	return m
}

func testTable(t *testing.T, n int) *toa.Table {
	t.Helper()
	obs := []string{"ao", "gbt", "@"}
	freqs := []float64{1400, 800, 2000}
	recs := make([]toa.Record, n)
	for i := range recs {
		recs[i] = toa.Record{
			MJD:     mjd.New(55000+int64(i*4), 0.1+0.8*float64(i)/float64(n)),
			FreqMHz: freqs[i%3],
			Obs:     obs[i%3],
			ErrorUS: 1,
		}
	}
	tb, err := toa.New(recs)
	if err != nil {
		t.Fatalf("toa.New() failed: %v", err)
	}
	return tb
}
