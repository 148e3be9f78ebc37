package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/roach88/pulsar/internal/model"
	"github.com/roach88/pulsar/internal/residuals"
	"github.com/roach88/pulsar/internal/simulate"
	"github.com/roach88/pulsar/internal/tim"
	"github.com/roach88/pulsar/internal/toa"
)

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the harness logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Harness holds the state of one scenario execution.
type Harness struct {
	scenario *Scenario
	model    model.Model
	table    *toa.Table
	rng      *rand.Rand
	logger   *slog.Logger

	base     *residuals.Residuals
	baseChi2 float64
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load the model file
// 2. Generate or read the TOAs, optionally through tim text
// 3. Compute the baseline residuals
// 4. Run each check against the baseline
//
// An error is returned only if the scenario cannot be set up or the
// baseline cannot be computed; failed checks are reported in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		scenario: scenario,
		rng:      rand.New(rand.NewPCG(scenario.Seed, 0)),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.setup(); err != nil {
		return nil, err
	}

	base, err := h.compute(ctx, h.table, 0)
	if err != nil {
		return nil, fmt.Errorf("baseline residuals: %w", err)
	}
	h.base = base
	if h.baseChi2, err = base.Chi2(); err != nil {
		return nil, fmt.Errorf("baseline chi2: %w", err)
	}

	result := NewResult(scenario.Name)
	if result.Summary, err = base.Summarize(0); err != nil {
		return nil, fmt.Errorf("baseline summary: %w", err)
	}

	for _, name := range scenario.checks() {
		for _, c := range h.runCheck(ctx, name) {
			h.logger.Debug("check finished",
				"scenario", scenario.Name,
				"check", c.Name,
				"pass", c.Pass,
				"trials", c.Trials,
			)
			result.Add(c)
		}
	}

	return result, nil
}

func (h *Harness) setup() error {
	m, err := model.LoadFile(h.scenario.Model)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	h.model = m

	var t *toa.Table
	if h.scenario.TOAs != "" {
		t, err = tim.ReadFile(h.scenario.TOAs, toa.WithScale(m.TimeScale()))
	} else {
		t, err = simulate.Many(m, h.scenario.Batches...)
	}
	if err != nil {
		return fmt.Errorf("load toas: %w", err)
	}

	if h.scenario.RoundTripTim {
		var buf bytes.Buffer
		if err := tim.Write(&buf, t); err != nil {
			return fmt.Errorf("write tim: %w", err)
		}
		if t, err = tim.Read(&buf, toa.WithScale(t.Scale())); err != nil {
			return fmt.Errorf("read tim: %w", err)
		}
	}
	h.table = t

	h.logger.Debug("scenario ready",
		"scenario", h.scenario.Name,
		"model", m.Name(),
		"toas", t.Len(),
		"fingerprint", t.Fingerprint(),
	)
	return nil
}

func (h *Harness) compute(ctx context.Context, t *toa.Table, workers int) (*residuals.Residuals, error) {
	return h.computeMean(ctx, t, workers, h.scenario.SubtractMean)
}

func (h *Harness) computeMean(ctx context.Context, t *toa.Table, workers int, subtractMean bool) (*residuals.Residuals, error) {
	return residuals.Compute(ctx, t, h.model, residuals.Options{
		SubtractMean: subtractMean,
		Workers:      workers,
		Logger:       h.logger,
	})
}

func (h *Harness) runCheck(ctx context.Context, name string) []CheckResult {
	switch name {
	case CheckPermutation:
		return []CheckResult{h.checkPermutation(ctx)}
	case CheckSort:
		var out []CheckResult
		for _, key := range h.scenario.sortKeys() {
			out = append(out, h.checkSort(ctx, key))
		}
		return out
	case CheckIdempotence:
		return []CheckResult{h.checkIdempotence(ctx)}
	case CheckConcatenation:
		return []CheckResult{h.checkConcatenation(ctx)}
	case CheckWorkers:
		return []CheckResult{h.checkWorkers(ctx)}
	}
	return []CheckResult{{Name: name, Message: fmt.Sprintf("unknown check %q", name)}}
}
