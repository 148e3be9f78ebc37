// Package toa provides the TOA (time of arrival) table consumed by the
// residual pipeline.
//
// A Table is an ordered sequence of Records plus derived columns (currently
// the float64 MJD used for sorting). Row position carries no meaning: two
// tables holding the same multiset of records are observationally
// equivalent, and Fingerprint reports the same digest for both.
//
// # Copy-on-reorder
//
// Tables are immutable after New. Reorder, SortBy, Select, Slice, Filter and
// Concatenate all return a fresh Table whose records and derived columns
// were permuted together. No operation edits a column in place, so any
// number of goroutines may compute against one Table concurrently.
//
// # Errors
//
//   - MalformedRecordError: a record is missing a field or has an invalid value
//   - IndexError: a permutation or index is out of range or not a bijection
//   - DimensionMismatchError: time scales disagree (table vs table, table vs model)
//   - EmptyTableError: a reduction was requested over zero rows
package toa
