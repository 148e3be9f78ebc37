// Package residuals computes observed-minus-predicted time residuals for a
// TOA table under a timing model.
//
// Compute runs in two passes. The first pass is strictly per row:
// residual[i] depends only on row i and the model parameters, and is formed
// as a double-double difference of the two-part timestamps before rounding
// to float64. The optional second pass subtracts the uncertainty-weighted
// mean of all residuals, an order-independent reduction applied uniformly.
//
// A Residuals value is a snapshot aligned with the table order at call time.
// Tables are immutable, so later reorders produce new tables and never
// disturb an existing snapshot.
package residuals
