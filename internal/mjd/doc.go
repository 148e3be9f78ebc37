// Package mjd provides the high-precision time representation used by the
// residual pipeline.
//
// A Time is an integer Modified Julian Day plus a float64 fraction of a day.
// Keeping the day number out of the float64 preserves roughly 10 ps of
// resolution for any epoch; a single float64 MJD only resolves about 1 µs.
//
// Differences between times are returned as DD (double-double) seconds,
// built from error-free transformations (TwoSum, FMA-based TwoProd), so the
// cancellation in observed-minus-predicted never loses the residual.
//
// This package imports nothing internal.
package mjd
