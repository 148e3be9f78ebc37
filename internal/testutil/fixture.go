// Package testutil provides deterministic fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/roach88/pulsar/internal/mjd"
	"github.com/roach88/pulsar/internal/model"
	"github.com/roach88/pulsar/internal/simulate"
	"github.com/roach88/pulsar/internal/toa"
)

// NoiseSeed seeds the fixture batches. Changing it changes every golden file.
const NoiseSeed = 20100419

// ThreeObservatoryBatches is a multi-telescope, multi-frequency data set:
// 30 Arecibo TOAs at 1400 MHz, 40 GBT TOAs at 800 MHz and 50 barycentric
// TOAs at 2000 MHz, each with 1 µs white noise.
var ThreeObservatoryBatches = []simulate.Batch{
	{StartMJD: 55000, EndMJD: 55500, Count: 30, FreqMHz: 1400, Obs: "ao", AddNoise: true, Seed: NoiseSeed},
	{StartMJD: 55010, EndMJD: 55500, Count: 40, FreqMHz: 800, Obs: "gbt", AddNoise: true, Seed: NoiseSeed},
	{StartMJD: 55020, EndMJD: 55500, Count: 50, FreqMHz: 2000, Obs: "@", AddNoise: true, Seed: NoiseSeed},
}

// Spin returns the isolated-MSP model used across tests.
func Spin(t testing.TB) *model.Spin {
	t.Helper()
	m, err := model.NewSpin(model.SpinParams{
		PSR:       "1748-2021E",
		TimeScale: toa.ScaleUTC,
		PEpoch:    mjd.MustParse("53750.000000"),
		F0:        61.485476554,
		F1:        -1.181e-15,
		DM:        224.114,
		Jumps:     map[string]float64{"gbt": 1.5e-6},
	})
	if err != nil {
		t.Fatalf("testutil.Spin: %v", err)
	}
	return m
}

// ThreeObservatoryTable returns the 120-row ThreeObservatoryBatches table
// under m.
func ThreeObservatoryTable(t testing.TB, m model.Model) *toa.Table {
	t.Helper()
	tb, err := simulate.Many(m, ThreeObservatoryBatches...)
	if err != nil {
		t.Fatalf("testutil.ThreeObservatoryTable: %v", err)
	}
	return tb
}
