// Package harness runs residual invariance scenarios.
//
// A scenario names a timing model, a source of TOAs and the properties the
// residual pipeline must hold on them: reordering the TOAs (randomly or by
// a sort key) only reorders the residuals, repeating a computation changes
// nothing, computing over concatenated tables matches computing over the
// parts, and the worker count never changes the result.
//
// # Scenario Format
//
//	name: three_observatories
//	description: "What this scenario validates"
//	model: ../models/ngc6440e.cue      # relative to the scenario file
//	batches:                           # or toas: path/to/file.tim
//	  - {start: 55000, end: 55500, count: 30, freq_mhz: 1400, obs: ao}
//	roundtrip_tim: true                # pass generated TOAs through tim text
//	subtract_mean: false
//	checks: [permutation, sort, idempotence, concatenation, workers]
//	permutations: 10
//	sort_keys: [freq, mjd_float]
//	seed: 20100419
//	tolerance: 1e-14                   # relative chi-squared tolerance
//
// Omitted checks, permutations, sort_keys and tolerance take defaults.
//
// # Deterministic Testing
//
// Fake TOAs and permutations come from seeded PCG sources, so a scenario
// produces the same result on every run. RunWithGolden snapshots the
// structural outcome under testdata/golden.
package harness
