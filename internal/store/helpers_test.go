package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/pulsar/internal/residuals"
	"github.com/roach88/pulsar/internal/testutil"
	"github.com/roach88/pulsar/internal/toa"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixture returns the shared 120-row table and its residuals.
func fixture(t *testing.T, subtractMean bool) (*toa.Table, *residuals.Residuals) {
	t.Helper()
	m := testutil.Spin(t)
	tb := testutil.ThreeObservatoryTable(t, m)
	r, err := residuals.Compute(context.Background(), tb, m, residuals.Options{SubtractMean: subtractMean})
	if err != nil {
		t.Fatalf("residuals.Compute() failed: %v", err)
	}
	return tb, r
}
