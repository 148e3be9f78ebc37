package toa

import (
	"fmt"
	"maps"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pulsar/internal/mjd"
)

// TimeScale names the time standard TOA timestamps are expressed in.
type TimeScale string

const (
	ScaleUTC TimeScale = "utc"
	ScaleTT  TimeScale = "tt"
	ScaleTDB TimeScale = "tdb"
)

// ParseScale validates a time scale name, case-insensitively.
func ParseScale(s string) (TimeScale, error) {
	switch ts := TimeScale(strings.ToLower(strings.TrimSpace(s))); ts {
	case ScaleUTC, ScaleTT, ScaleTDB:
		return ts, nil
	}
	return "", fmt.Errorf("unknown time scale %q", s)
}

// Record is a single TOA.
type Record struct {
	// Name is the free-form TOA name (usually the archive file). Optional.
	Name string

	// MJD is the arrival time in the table's time scale.
	MJD mjd.Time

	// FreqMHz is the observing frequency. +Inf means infinite frequency
	// (no dispersion), as used for barycentred or already de-dispersed TOAs.
	FreqMHz float64

	// Obs is the observatory code, normalized to lower-case NFC.
	Obs string

	// ErrorUS is the 1-sigma measurement uncertainty in microseconds.
	ErrorUS float64

	// Flags holds "-key value" metadata. Keys are normalized like Obs.
	Flags map[string]string
}

// ErrorSeconds returns the uncertainty in seconds.
func (r Record) ErrorSeconds() float64 {
	return r.ErrorUS * 1e-6
}

// Flag returns a flag value and whether it was present.
func (r Record) Flag(key string) (string, bool) {
	v, ok := r.Flags[flagKey(key)]
	return v, ok
}

func (r Record) clone() Record {
	if r.Flags != nil {
		r.Flags = maps.Clone(r.Flags)
	}
	return r
}

// NormalizeObs returns the canonical form of an observatory code, as stored
// in Record.Obs by New: trimmed, NFC-normalized and lower-cased.
func NormalizeObs(s string) string {
	return normalizeKey(s)
}

func normalizeKey(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

func flagKey(s string) string {
	return strings.TrimPrefix(normalizeKey(s), "-")
}

// normalize validates r and returns a normalized deep copy.
func normalize(i int, r Record) (Record, error) {
	if !r.MJD.IsValid() {
		return Record{}, &MalformedRecordError{Index: i, Field: "mjd", Reason: fmt.Sprintf("fraction %v outside [0, 1)", r.MJD.Frac)}
	}
	if math.IsNaN(r.FreqMHz) || r.FreqMHz <= 0 {
		return Record{}, &MalformedRecordError{Index: i, Field: "freq", Reason: fmt.Sprintf("frequency must be positive, got %v", r.FreqMHz)}
	}
	if math.IsNaN(r.ErrorUS) || math.IsInf(r.ErrorUS, 0) || r.ErrorUS <= 0 {
		return Record{}, &MalformedRecordError{Index: i, Field: "error", Reason: fmt.Sprintf("uncertainty must be positive and finite, got %v", r.ErrorUS)}
	}

	out := Record{
		Name:    norm.NFC.String(strings.TrimSpace(r.Name)),
		MJD:     r.MJD,
		FreqMHz: r.FreqMHz,
		Obs:     NormalizeObs(r.Obs),
		ErrorUS: r.ErrorUS,
	}
	if out.Obs == "" {
		return Record{}, &MalformedRecordError{Index: i, Field: "obs", Reason: "observatory is required"}
	}

	if len(r.Flags) > 0 {
		out.Flags = make(map[string]string, len(r.Flags))
		for k, v := range r.Flags {
			nk := flagKey(k)
			if nk == "" {
				return Record{}, &MalformedRecordError{Index: i, Field: "flags", Reason: "empty flag name"}
			}
			if _, dup := out.Flags[nk]; dup {
				return Record{}, &MalformedRecordError{Index: i, Field: "flags", Reason: fmt.Sprintf("duplicate flag %q after normalization", nk)}
			}
			out.Flags[nk] = norm.NFC.String(v)
		}
	}
	return out, nil
}
