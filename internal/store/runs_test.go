package store

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulsar/internal/toa"
)

func TestWriteRun_ReadExact(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("run-1")))
	tb, r := fixture(t, true)
	require.NoError(t, s.SaveTable(ctx, "ngc6440e", tb))

	run, err := NewRun("ngc6440e", tb, r, 0)
	require.NoError(t, err)
	stored, err := s.WriteRun(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, "run-1", stored.ID)
	assert.Equal(t, int64(1), stored.Seq)

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	assert.Equal(t, r.TimeResids(), got.Resids)
	assert.Equal(t, r.Errors(), got.Errors)
	assert.True(t, got.SubtractMean)
	assert.Equal(t, r.Mean(), got.Mean)
	assert.Equal(t, 119, got.DOF)
}

func TestWriteRun_DefaultIDIsUUIDv7(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	tb, r := fixture(t, false)

	run, err := NewRun("", tb, r, 0)
	require.NoError(t, err)
	stored, err := s.WriteRun(ctx, run)
	require.NoError(t, err)

	id, err := uuid.Parse(stored.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	got, err := s.ReadRun(ctx, stored.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Table)
}

func TestWriteRun_ShapeMismatch(t *testing.T) {
	s := createTestStore(t)
	_, err := s.WriteRun(context.Background(), Run{Resids: []float64{1}, Errors: nil})
	assert.Error(t, err)
}

func TestNewRun_LengthMismatch(t *testing.T) {
	tb, r := fixture(t, false)
	half, err := tb.Slice(0, 10)
	require.NoError(t, err)
	_, err = NewRun("", half, r, 0)
	assert.Error(t, err)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListRuns_Ordering(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("z", "a", "m")))
	tb, r := fixture(t, false)
	require.NoError(t, s.SaveTable(ctx, "t", tb))

	for _, table := range []string{"t", "", "t"} {
		run, err := NewRun(table, tb, r, 0)
		require.NoError(t, err)
		_, err = s.WriteRun(ctx, run)
		require.NoError(t, err)
	}

	all, err := s.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"z", "a", "m"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Nil(t, all[0].Resids)

	onT, err := s.ListRuns(ctx, "t")
	require.NoError(t, err)
	require.Len(t, onT, 2)
	assert.Equal(t, "z", onT[0].ID)
	assert.Equal(t, "m", onT[1].ID)

	none, err := s.ListRuns(ctx, "other")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestWriteRun_PermutedTableSameChi2(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	tb, r := fixture(t, false)

	sorted, perm := tb.SortBy(toa.KeyFreq)
	pr, err := r.Permute(perm)
	require.NoError(t, err)

	a, err := NewRun("", tb, r, 0)
	require.NoError(t, err)
	b, err := NewRun("", sorted, pr, 0)
	require.NoError(t, err)

	a, err = s.WriteRun(ctx, a)
	require.NoError(t, err)
	b, err = s.WriteRun(ctx, b)
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.Equal(t, a.Chi2, b.Chi2)
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator_Concurrent(t *testing.T) {
	var (
		g    UUIDv7Generator
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := g.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 400)
}

func TestNewRun_DOFCountsFittedParameters(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	tb, r := fixture(t, true)

	run, err := NewRun("", tb, r, 3)
	require.NoError(t, err)
	assert.Equal(t, r.DOF(3), run.DOF)
	assert.Equal(t, 116, run.DOF)

	stored, err := s.WriteRun(ctx, run)
	require.NoError(t, err)
	got, err := s.ReadRun(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, 116, got.DOF)
}
