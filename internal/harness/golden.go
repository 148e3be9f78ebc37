package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the structural outcome of a scenario. Floating-point
// statistics are left out so snapshots are stable across platforms.
type Snapshot struct {
	Scenario     string          `json:"scenario"`
	Model        string          `json:"model"`
	TOAs         int             `json:"toas"`
	DOF          int             `json:"dof"`
	SubtractMean bool            `json:"subtract_mean"`
	Pass         bool            `json:"pass"`
	Checks       []SnapshotCheck `json:"checks"`
}

// SnapshotCheck is the structural outcome of one check.
type SnapshotCheck struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Trials int    `json:"trials"`
}

// NewSnapshot extracts the snapshot of result.
func NewSnapshot(result *Result) Snapshot {
	s := Snapshot{
		Scenario:     result.Scenario,
		Model:        result.Summary.Model,
		TOAs:         result.Summary.TOAs,
		DOF:          result.Summary.DOF,
		SubtractMean: result.Summary.SubtractMean,
		Pass:         result.Pass,
		Checks:       make([]SnapshotCheck, len(result.Checks)),
	}
	for i, c := range result.Checks {
		s.Checks[i] = SnapshotCheck{Name: c.Name, Pass: c.Pass, Trials: c.Trials}
	}
	return s
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
