package toa

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_PermutationInvariant(t *testing.T) {
	tb := mustTable(t, makeRecords(30))
	want := tb.Fingerprint()
	assert.Len(t, want, 64)

	r := rand.New(rand.NewPCG(3, 4))
	for trial := 0; trial < 10; trial++ {
		p, err := tb.Reorder(r.Perm(tb.Len()))
		require.NoError(t, err)
		assert.Equal(t, want, p.Fingerprint())
		assert.True(t, Equivalent(tb, p))
	}
}

func TestFingerprint_DetectsChanges(t *testing.T) {
	recs := makeRecords(5)
	base := mustTable(t, recs)

	changed := makeRecords(5)
	changed[2].ErrorUS += 1e-12
	assert.NotEqual(t, base.Fingerprint(), mustTable(t, changed).Fingerprint())

	flagged := makeRecords(5)
	flagged[0].Flags = map[string]string{"be": "puppi"}
	assert.False(t, Equivalent(base, mustTable(t, flagged)))

	otherScale := mustTable(t, recs, WithScale(ScaleTDB))
	assert.False(t, Equivalent(base, otherScale))

	// A duplicated row is a different multiset.
	dup, err := base.Select([]int{0, 1, 2, 3, 3})
	require.NoError(t, err)
	assert.False(t, Equivalent(base, dup))
}

func TestCanonicalRecord_KeyOrder(t *testing.T) {
	got := string(canonicalRecord(Record{Name: "a<b", Obs: "ao", FreqMHz: 1, ErrorUS: 1}))
	assert.Equal(t,
		`{"day":0,"error":"0x3ff0000000000000","frac":"0x0","freq":"0x3ff0000000000000","name":"a<b","obs":"ao"}`,
		got)
}

func TestCompareUTF16(t *testing.T) {
	// U+FF61 sorts before U+10000 in UTF-8 but after it in UTF-16.
	assert.Equal(t, 1, compareUTF16("｡", "\U00010000"))
	assert.Equal(t, 0, compareUTF16("obs", "obs"))
}
