// Package store provides SQLite-backed persistence for TOA tables and
// residual runs.
//
// # Layout
//
//   - toa_tables / toas: named tables, rows in saved order
//   - residual_runs: one row per residual computation, keyed by a UUIDv7
//   - residual_values: per-TOA residuals of a run, index-aligned with its table
//
// # Exactness
//
// MJDs are stored as an integer day plus a REAL fraction and every float is
// stored as REAL, so a saved table or run reads back bit-for-bit.
//
// # Ordering
//
// Runs are ordered by seq, a logical clock assigned at write time, then by
// id COLLATE BINARY. Wall-clock time is never used for ordering.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
