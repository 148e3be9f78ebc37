// Package model defines the timing-model side of the residual pipeline.
//
// A Model maps one TOA record to the predicted arrival time of the pulse
// nearest to it. Predictions must be pure functions of (record, parameters):
// a model may not look at row position, row count or any other table-level
// property. Evaluate runs a model over a whole table, optionally on a worker
// pool, and always returns predictions index-aligned with the table.
//
// Spin is a small concrete model (spin-down polynomial, dispersion delay,
// per-observatory jumps) loaded from CUE files. It exists to exercise the
// pipeline; it is not a substitute for a full astrometric/binary model.
package model
