package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsar/internal/residuals"
)

func summary() residuals.Summary {
	return residuals.Summary{
		Model:       "1748-2021E",
		TOAs:        120,
		Chi2:        118.5,
		DOF:         119,
		ReducedChi2: 118.5 / 119,
		WeightedRMS: 1.02e-6,
	}
}

func TestRecorder_Observe(t *testing.T) {
	r := NewRecorder(DefaultNamespace)
	r.Observe(summary(), 3*time.Millisecond)
	r.Observe(summary(), 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ComputationsTotal.WithLabelValues("1748-2021E", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.ComputationsTotal.WithLabelValues("1748-2021E", "error")))
	assert.Equal(t, 118.5, testutil.ToFloat64(r.LastChi2.WithLabelValues("1748-2021E")))
	assert.Equal(t, 120.0, testutil.ToFloat64(r.LastTOAs.WithLabelValues("1748-2021E")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.ComputationDuration))
}

func TestRecorder_ObserveError(t *testing.T) {
	r := NewRecorder(DefaultNamespace)
	r.ObserveError("spin", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.ComputationsTotal.WithLabelValues("spin", "error")))
	assert.Equal(t, 0, testutil.CollectAndCount(r.LastChi2))
}

func TestRecorder_PrivateRegistry(t *testing.T) {
	// Two recorders with the same namespace must not collide.
	a := NewRecorder(DefaultNamespace)
	b := NewRecorder(DefaultNamespace)
	a.Observe(summary(), time.Millisecond)

	n, err := testutil.GatherAndCount(b.Registry(), "pulsar_residual_computations_total")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder(DefaultNamespace)
	r.Observe(summary(), 2*time.Millisecond)

	path := filepath.Join(t.TempDir(), "pulsar.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `pulsar_residual_computations_total{model="1748-2021E",status="ok"} 1`)
	assert.Contains(t, text, `pulsar_residual_chi2{model="1748-2021E"} 118.5`)
	assert.True(t, strings.Contains(text, "# TYPE pulsar_residual_computation_duration_seconds histogram"))
}

func TestRecorder_WriteTextfileBadPath(t *testing.T) {
	r := NewRecorder(DefaultNamespace)
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}
