package model

import (
	"errors"
	"fmt"
	"maps"
	"math"

	"github.com/roach88/pulsar/internal/mjd"
	"github.com/roach88/pulsar/internal/toa"
)

// DMConst is the dispersion constant 1/2.41e-4 in s MHz^2 pc^-1 cm^3.
const DMConst = 1.0 / 2.41e-4

// Spin is an isolated-pulsar model: a spin-down phase polynomial about
// PEpoch, a cold-plasma dispersion delay and per-observatory time jumps.
//
// Spin values are immutable once built by NewSpin; all methods are safe for
// concurrent use.
type Spin struct {
	psr    string
	scale  toa.TimeScale
	pepoch mjd.Time
	f0     float64
	f1     float64
	f2     float64
	dm     float64
	jumps  map[string]float64
}

// SpinParams are the parameters of a Spin model.
type SpinParams struct {
	PSR       string
	TimeScale toa.TimeScale
	PEpoch    mjd.Time
	F0        float64 // Hz
	F1        float64 // Hz/s
	F2        float64 // Hz/s^2
	DM        float64 // pc cm^-3
	Jumps     map[string]float64
}

// NewSpin validates p and returns the model.
func NewSpin(p SpinParams) (*Spin, error) {
	if p.PSR == "" {
		return nil, errors.New("spin model: psr name is required")
	}
	if _, err := toa.ParseScale(string(p.TimeScale)); err != nil {
		return nil, fmt.Errorf("spin model %s: %w", p.PSR, err)
	}
	if !(p.F0 > 0) || math.IsInf(p.F0, 0) {
		return nil, fmt.Errorf("spin model %s: f0 must be positive and finite, got %v", p.PSR, p.F0)
	}
	for name, v := range map[string]float64{"f1": p.F1, "f2": p.F2, "dm": p.DM} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("spin model %s: %s must be finite, got %v", p.PSR, name, v)
		}
	}
	if p.DM < 0 {
		return nil, fmt.Errorf("spin model %s: dm must be non-negative, got %v", p.PSR, p.DM)
	}

	jumps := make(map[string]float64, len(p.Jumps))
	for obs, v := range p.Jumps {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("spin model %s: jump for %q must be finite", p.PSR, obs)
		}
		key := toa.NormalizeObs(obs)
		if _, dup := jumps[key]; dup {
			return nil, fmt.Errorf("spin model %s: jump for %q duplicates observatory %q", p.PSR, obs, key)
		}
		jumps[key] = v
	}

	return &Spin{
		psr:    p.PSR,
		scale:  p.TimeScale,
		pepoch: p.PEpoch,
		f0:     p.F0,
		f1:     p.F1,
		f2:     p.F2,
		dm:     p.DM,
		jumps:  jumps,
	}, nil
}

// Name returns the pulsar name.
func (s *Spin) Name() string { return s.psr }

// TimeScale returns the scale the model's epochs are expressed in.
func (s *Spin) TimeScale() toa.TimeScale { return s.scale }

// Params returns a copy of the model parameters.
func (s *Spin) Params() SpinParams {
	return SpinParams{
		PSR:       s.psr,
		TimeScale: s.scale,
		PEpoch:    s.pepoch,
		F0:        s.f0,
		F1:        s.f1,
		F2:        s.f2,
		DM:        s.dm,
		Jumps:     maps.Clone(s.jumps),
	}
}

// Predict implements Model.
func (s *Spin) Predict(r toa.Record) (mjd.Time, error) {
	return s.predict(r)
}

// PredictTable implements BatchModel using the same kernel as Predict.
func (s *Spin) PredictTable(t *toa.Table) ([]mjd.Time, error) {
	out := make([]mjd.Time, t.Len())
	for i := range out {
		p, err := s.predict(t.Record(i))
		if err != nil {
			return nil, &PredictionError{Index: i, Err: err}
		}
		out[i] = p
	}
	return out, nil
}

// Delay returns the total delay in seconds between emission and the
// recorded arrival: dispersion plus the observatory jump.
func (s *Spin) Delay(r toa.Record) float64 {
	var d float64
	if s.dm != 0 && !math.IsInf(r.FreqMHz, 1) {
		d = s.dm * DMConst / (r.FreqMHz * r.FreqMHz)
	}
	return d + s.jumps[r.Obs]
}

// Phase returns the pulse phase, in cycles, dt seconds after PEpoch.
func (s *Spin) Phase(dt mjd.DD) mjd.DD {
	dt2 := dt.Mul(dt)
	p := dt.MulFloat(s.f0)
	p = p.Add(dt2.MulFloat(0.5 * s.f1))
	p = p.Add(dt2.Mul(dt).MulFloat(s.f2 / 6))
	return p
}

// Frequency returns the instantaneous spin frequency dt seconds after PEpoch.
func (s *Spin) Frequency(dt float64) float64 {
	return s.f0 + s.f1*dt + 0.5*s.f2*dt*dt
}

// predict is the per-row kernel shared by Predict and PredictTable.
//
// The arrival is shifted by the fractional phase divided by the
// instantaneous frequency, landing on the nearest model pulse.
func (s *Spin) predict(r toa.Record) (mjd.Time, error) {
	dt := r.MJD.Sub(s.pepoch).AddFloat(-s.Delay(r))
	phase := s.Phase(dt)
	frac := phase.Sub(phase.Round())

	f := s.Frequency(dt.Float64())
	if !(f > 0) || math.IsInf(f, 0) || !frac.IsFinite() {
		return mjd.Time{}, fmt.Errorf("spin model %s: non-physical spin frequency %v at mjd %s", s.psr, f, r.MJD)
	}
	return r.MJD.AddSeconds(mjd.NewDD(-frac.Float64() / f)), nil
}
