// Package simulate generates synthetic TOAs that sit on the pulses of a
// timing model, optionally perturbed by seeded Gaussian noise.
package simulate

import (
	"fmt"
	"maps"
	"math/rand/v2"

	"github.com/roach88/pulsar/internal/mjd"
	"github.com/roach88/pulsar/internal/model"
	"github.com/roach88/pulsar/internal/toa"
)

// refinePasses is how many times each TOA is moved onto the predicted
// pulse. Two passes bring the model residual to the picosecond level.
const refinePasses = 2

// Batch describes TOAs spread uniformly over [StartMJD, EndMJD] from one
// observatory at one frequency.
type Batch struct {
	StartMJD float64           `yaml:"start"`
	EndMJD   float64           `yaml:"end"`
	Count    int               `yaml:"count"`
	FreqMHz  float64           `yaml:"freq_mhz"`
	Obs      string            `yaml:"obs"`
	ErrorUS  float64           `yaml:"error_us,omitempty"` // default 1
	Flags    map[string]string `yaml:"flags,omitempty"`

	// AddNoise perturbs each TOA by N(0, ErrorUS) using a PCG source
	// seeded with (Seed, batch index), so output is reproducible.
	AddNoise bool   `yaml:"add_noise,omitempty"`
	Seed     uint64 `yaml:"seed,omitempty"`
}

// Uniform returns the TOAs for one batch, in time order, in the model's
// time scale.
func Uniform(m model.Model, b Batch) (*toa.Table, error) {
	return uniform(m, b, 0)
}

// Many generates each batch and concatenates them in argument order.
func Many(m model.Model, batches ...Batch) (*toa.Table, error) {
	tables := make([]*toa.Table, 0, len(batches))
	for i, b := range batches {
		t, err := uniform(m, b, uint64(i))
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		tables = append(tables, t)
	}
	return toa.Concatenate(tables...)
}

func uniform(m model.Model, b Batch, stream uint64) (*toa.Table, error) {
	if b.Count < 1 {
		return nil, fmt.Errorf("simulate: count must be at least 1, got %d", b.Count)
	}
	if b.EndMJD < b.StartMJD {
		return nil, fmt.Errorf("simulate: end %v before start %v", b.EndMJD, b.StartMJD)
	}
	errUS := b.ErrorUS
	if errUS == 0 {
		errUS = 1
	}

	var rng *rand.Rand
	if b.AddNoise {
		rng = rand.New(rand.NewPCG(b.Seed, stream))
	}

	recs := make([]toa.Record, b.Count)
	for i := range recs {
		at := b.StartMJD
		if b.Count > 1 {
			at += (b.EndMJD - b.StartMJD) * float64(i) / float64(b.Count-1)
		}
		r := toa.Record{
			Name:    "fake",
			MJD:     mjd.FromFloat(at),
			FreqMHz: b.FreqMHz,
			Obs:     b.Obs,
			ErrorUS: errUS,
			Flags:   maps.Clone(b.Flags),
		}
		for pass := 0; pass < refinePasses; pass++ {
			pred, err := m.Predict(r)
			if err != nil {
				return nil, fmt.Errorf("simulate: predict toa %d: %w", i, err)
			}
			r.MJD = pred
		}
		if rng != nil {
			r.MJD = r.MJD.AddSeconds(mjd.NewDD(rng.NormFloat64() * errUS * 1e-6))
		}
		recs[i] = r
	}

	return toa.New(recs, toa.WithScale(m.TimeScale()))
}
