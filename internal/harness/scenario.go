package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pulsar/internal/simulate"
	"github.com/roach88/pulsar/internal/toa"
)

// Check names.
const (
	CheckPermutation   = "permutation"
	CheckSort          = "sort"
	CheckIdempotence   = "idempotence"
	CheckConcatenation = "concatenation"
	CheckWorkers       = "workers"
)

// AllChecks is the default check list, in execution order.
var AllChecks = []string{CheckPermutation, CheckSort, CheckIdempotence, CheckConcatenation, CheckWorkers}

// Defaults for omitted scenario fields.
const (
	DefaultPermutations = 10
	DefaultTolerance    = 1e-14
)

// DefaultSortKeys are the sort keys used when a scenario names none.
var DefaultSortKeys = []string{"freq", "mjd_float"}

// Scenario defines a residual invariance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the path to a CUE spin model file.
	Model string `yaml:"model"`

	// Batches generates fake TOAs on the model. Exactly one of Batches and
	// TOAs is required.
	Batches []simulate.Batch `yaml:"batches,omitempty"`

	// TOAs is the path to a tim file, read in the model's time scale.
	TOAs string `yaml:"toas,omitempty"`

	// RoundTripTim writes the TOAs as tim text and reads them back before
	// computing anything.
	RoundTripTim bool `yaml:"roundtrip_tim,omitempty"`

	// SubtractMean is passed to every residual computation.
	SubtractMean bool `yaml:"subtract_mean,omitempty"`

	// Checks selects the properties to verify. Empty means AllChecks.
	Checks []string `yaml:"checks,omitempty"`

	// Permutations is the number of random shuffles for the permutation
	// check. Zero means DefaultPermutations.
	Permutations int `yaml:"permutations,omitempty"`

	// SortKeys are the keys for the sort check. Empty means DefaultSortKeys.
	SortKeys []string `yaml:"sort_keys,omitempty"`

	// Seed seeds the permutation source.
	Seed uint64 `yaml:"seed,omitempty"`

	// Tolerance bounds |chi2 - chi2'| relative to max(1, |chi2|).
	// Zero means DefaultTolerance.
	Tolerance float64 `yaml:"tolerance,omitempty"`
}

// checks returns the effective check list.
func (s *Scenario) checks() []string {
	if len(s.Checks) == 0 {
		return AllChecks
	}
	return s.Checks
}

func (s *Scenario) permutations() int {
	if s.Permutations == 0 {
		return DefaultPermutations
	}
	return s.Permutations
}

func (s *Scenario) sortKeys() []string {
	if len(s.SortKeys) == 0 {
		return DefaultSortKeys
	}
	return s.SortKeys
}

func (s *Scenario) tolerance() float64 {
	if s.Tolerance == 0 {
		return DefaultTolerance
	}
	return s.Tolerance
}

// LoadScenario reads and parses a scenario YAML file. Model and TOA paths
// are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	scenario.Model = resolve(base, scenario.Model)
	scenario.TOAs = resolve(base, scenario.TOAs)

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML without resolving or validating
// paths.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "permutation:" vs "permutations:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if _, err := os.Stat(s.Model); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.Model)
	}

	switch {
	case len(s.Batches) == 0 && s.TOAs == "":
		return fmt.Errorf("one of batches or toas is required")
	case len(s.Batches) > 0 && s.TOAs != "":
		return fmt.Errorf("batches and toas are mutually exclusive")
	}
	if s.TOAs != "" {
		if _, err := os.Stat(s.TOAs); os.IsNotExist(err) {
			return fmt.Errorf("toas file not found: %s", s.TOAs)
		}
	}
	for i, b := range s.Batches {
		if b.Count < 1 {
			return fmt.Errorf("batches[%d]: count must be at least 1", i)
		}
		if b.Obs == "" {
			return fmt.Errorf("batches[%d]: obs is required", i)
		}
	}

	for i, c := range s.Checks {
		if !slices.Contains(AllChecks, c) {
			return fmt.Errorf("checks[%d]: unknown check %q", i, c)
		}
	}
	for i, k := range s.SortKeys {
		if _, err := toa.KeyByName(k); err != nil {
			return fmt.Errorf("sort_keys[%d]: %w", i, err)
		}
	}

	if s.Permutations < 0 {
		return fmt.Errorf("permutations must be non-negative")
	}
	if s.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative")
	}

	return nil
}
