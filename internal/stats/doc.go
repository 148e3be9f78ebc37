// Package stats implements the order-insensitive reductions of the residual
// pipeline: compensated sums, weighted means and chi-squared.
//
// Every reduction first places its terms in a canonical order (ascending
// magnitude, ties by signed value) and then sums with Neumaier compensation.
// The result is a function of the multiset of terms alone: permuting the
// input changes the output by exactly zero, independent of how or by how
// many workers the terms were produced.
//
// All functions are pure. Inputs are never modified.
package stats
