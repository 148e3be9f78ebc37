package harness

import "github.com/roach88/pulsar/internal/residuals"

// CheckResult is the outcome of one property check.
type CheckResult struct {
	// Name is the check name; sort checks carry their key ("sort:freq").
	Name string `json:"name"`

	Pass bool `json:"pass"`

	// Trials is the number of comparisons made.
	Trials int `json:"trials"`

	// MaxChi2Delta is the largest |chi2 - chi2'| seen.
	MaxChi2Delta float64 `json:"max_chi2_delta"`

	// Message explains the first failure. Empty if Pass is true.
	Message string `json:"message,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	Scenario string `json:"scenario"`

	// Pass is true if every check passed.
	Pass bool `json:"pass"`

	// Summary reduces the baseline residuals.
	Summary residuals.Summary `json:"summary"`

	Checks []CheckResult `json:"checks"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Checks:   []CheckResult{},
	}
}

// Add records a check and fails the result if the check failed.
func (r *Result) Add(c CheckResult) {
	r.Checks = append(r.Checks, c)
	if !c.Pass {
		r.Pass = false
	}
}

// Failures returns the failed checks.
func (r *Result) Failures() []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if !c.Pass {
			out = append(out, c)
		}
	}
	return out
}
