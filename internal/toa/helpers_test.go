package toa

import (
	"testing"

	"github.com/roach88/pulsar/internal/mjd"
)

// makeRecords builds n distinct records cycling through three observatories.
func makeRecords(n int) []Record {
	obs := []string{"ao", "gbt", "@"}
	freqs := []float64{1400, 800, 2000}
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{
			Name:    "fake",
			MJD:     mjd.New(55000+int64(i%7), float64(i)/float64(n+1)),
			FreqMHz: freqs[i%3],
			Obs:     obs[i%3],
			ErrorUS: 1 + float64(i%5)*0.5,
			Flags:   map[string]string{"be": "guppi"},
		}
	}
	return out
}

func mustTable(t *testing.T, recs []Record, opts ...Option) *Table {
	t.Helper()
	tb, err := New(recs, opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return tb
}

// assertColumnsAligned checks every derived column against its record.
func assertColumnsAligned(t *testing.T, tb *Table) {
	t.Helper()
	derived := tb.MJDFloat()
	for i := 0; i < tb.Len(); i++ {
		if got, want := derived[i], tb.Record(i).MJD.Float(); got != want {
			t.Fatalf("row %d: mjd_float %v does not match record %v", i, got, want)
		}
	}
}
