package mjd

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SecondsPerDay is the length of an MJD day in seconds.
const SecondsPerDay = 86400.0

// Time is an MJD split into an integer day and a fractional day.
//
// The zero value is MJD 0.0. Frac is always in [0, 1) for values built with
// New, Parse or AddSeconds.
type Time struct {
	Day  int64
	Frac float64
}

// ParseError reports a malformed MJD string.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse mjd %q: %s", e.Input, e.Reason)
}

// New returns day+frac with the fraction normalized into [0, 1).
func New(day int64, frac float64) Time {
	if frac >= 1 || frac < 0 {
		k := math.Floor(frac)
		day += int64(k)
		frac -= k
	}
	// frac-k can round up to exactly 1 for tiny negative inputs.
	if frac >= 1 {
		day++
		frac = 0
	}
	return Time{Day: day, Frac: frac}
}

// Parse reads a decimal MJD such as "55000.123456789012345".
//
// The integer part never passes through float64, so no precision is lost
// for large day numbers. Exponents and signs are rejected.
func Parse(s string) (Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Time{}, &ParseError{Input: s, Reason: "empty"}
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) {
		return Time{}, &ParseError{Input: s, Reason: "day must be decimal digits"}
	}
	if !allDigits(fracPart) {
		return Time{}, &ParseError{Input: s, Reason: "fraction must be decimal digits"}
	}

	day, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Time{}, &ParseError{Input: s, Reason: err.Error()}
	}

	var frac float64
	if fracPart != "" {
		frac, err = strconv.ParseFloat("0."+fracPart, 64)
		if err != nil {
			return Time{}, &ParseError{Input: s, Reason: err.Error()}
		}
	}

	return New(day, frac), nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or for constants.
func MustParse(s string) Time {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FromFloat converts a float64 MJD. Only suitable for coarse values such as
// generator bounds; the result carries float64 MJD precision.
func FromFloat(mjd float64) Time {
	day := math.Floor(mjd)
	return New(int64(day), mjd-day)
}

// String formats t so that Parse(t.String()) == t exactly.
func (t Time) String() string {
	if t.Frac == 0 {
		return strconv.FormatInt(t.Day, 10) + ".0"
	}
	frac := strconv.FormatFloat(t.Frac, 'f', -1, 64)
	return strconv.FormatInt(t.Day, 10) + strings.TrimPrefix(frac, "0")
}

// Float returns t as a single float64 MJD. Lossy; use only for sorting,
// plotting and other derived columns.
func (t Time) Float() float64 {
	return float64(t.Day) + t.Frac
}

// Sub returns t - u in seconds.
func (t Time) Sub(u Time) DD {
	// Exact while |days| < 2^53/86400.
	days := NewDD(float64(t.Day-u.Day) * SecondsPerDay)
	hi, lo := TwoSum(t.Frac, -u.Frac)
	frac := DD{Hi: hi, Lo: lo}.MulFloat(SecondsPerDay)
	return days.Add(frac)
}

// AddSeconds returns t shifted by s seconds.
func (t Time) AddSeconds(s DD) Time {
	days := s.DivFloat(SecondsPerDay)
	whole := math.Floor(days.Hi)
	rest := days.Sub(DD{Hi: whole})

	r := DD{Hi: t.Frac}.Add(rest)
	k := math.Floor(r.Hi)
	if r.Hi == k && r.Lo < 0 {
		k--
	}
	r = r.Sub(DD{Hi: k})

	return New(t.Day+int64(whole)+int64(k), r.Float64())
}

// Compare returns -1, 0 or +1 ordering t against u.
func (t Time) Compare(u Time) int {
	switch {
	case t.Day < u.Day:
		return -1
	case t.Day > u.Day:
		return 1
	case t.Frac < u.Frac:
		return -1
	case t.Frac > u.Frac:
		return 1
	}
	return 0
}

// IsValid reports whether Frac is finite and normalized.
func (t Time) IsValid() bool {
	return !math.IsNaN(t.Frac) && t.Frac >= 0 && t.Frac < 1
}
