// Package tim reads and writes TOAs in the Tempo2 FORMAT 1 text format.
//
// Each TOA line is
//
//	name freq mjd error site [-flag value]...
//
// with the frequency in MHz, the MJD in the file's time scale and the error
// in microseconds. A frequency of 0 means infinite frequency. Lines starting
// with "C " or "#" are comments; FORMAT and MODE directives are accepted and
// ignored. Other directives are rejected.
//
// Writing and then reading a table reproduces it exactly.
package tim

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/pulsar/internal/mjd"
	"github.com/roach88/pulsar/internal/toa"
)

// emptyName stands in for a TOA without a name.
const emptyName = "-"

// ParseError reports a line that could not be parsed.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// IsParseError reports whether err is a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// ignored lists the directives that carry no information for FORMAT 1 input.
var ignored = map[string]bool{
	"FORMAT": true,
	"MODE":   true,
}

// Read parses a tim stream into a table. opts are passed to toa.New, so the
// time scale is set with toa.WithScale.
func Read(r io.Reader, opts ...toa.Option) (*toa.Table, error) {
	var (
		records []toa.Record
		lines   []int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line == "C" || strings.HasPrefix(line, "C ") || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if ignored[fields[0]] {
			continue
		}
		if isDirective(fields[0]) {
			return nil, &ParseError{Line: n, Msg: fmt.Sprintf("unsupported directive %s", fields[0])}
		}

		rec, err := parseRecord(n, fields)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		lines = append(lines, n)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tim: %w", err)
	}

	t, err := toa.New(records, opts...)
	if err != nil {
		var me *toa.MalformedRecordError
		if errors.As(err, &me) && me.Index >= 0 && me.Index < len(lines) {
			return nil, fmt.Errorf("line %d: %w", lines[me.Index], err)
		}
		return nil, err
	}
	return t, nil
}

// ReadFile reads the tim file at path.
func ReadFile(path string, opts ...toa.Option) (*toa.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tim file: %w", err)
	}
	defer f.Close()

	t, err := Read(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// isDirective reports whether tok looks like an upper-case command word.
func isDirective(tok string) bool {
	if len(tok) < 2 {
		return false
	}
	for _, c := range tok {
		if (c < 'A' || c > 'Z') && c != '_' {
			return false
		}
	}
	return true
}

func parseRecord(n int, fields []string) (toa.Record, error) {
	if len(fields) < 5 {
		return toa.Record{}, &ParseError{Line: n, Msg: fmt.Sprintf("want at least 5 fields, got %d", len(fields))}
	}

	freq, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return toa.Record{}, &ParseError{Line: n, Msg: fmt.Sprintf("bad frequency %q", fields[1])}
	}
	if freq == 0 {
		freq = math.Inf(1)
	}

	t, err := mjd.Parse(fields[2])
	if err != nil {
		return toa.Record{}, &ParseError{Line: n, Msg: err.Error()}
	}

	errUS, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return toa.Record{}, &ParseError{Line: n, Msg: fmt.Sprintf("bad error %q", fields[3])}
	}

	rec := toa.Record{
		MJD:     t,
		FreqMHz: freq,
		Obs:     fields[4],
		ErrorUS: errUS,
	}
	if fields[0] != emptyName {
		rec.Name = fields[0]
	}

	rest := fields[5:]
	if len(rest)%2 != 0 {
		return toa.Record{}, &ParseError{Line: n, Msg: fmt.Sprintf("flag %s has no value", rest[len(rest)-1])}
	}
	if len(rest) > 0 {
		rec.Flags = make(map[string]string, len(rest)/2)
	}
	for i := 0; i < len(rest); i += 2 {
		k, v := rest[i], rest[i+1]
		if !strings.HasPrefix(k, "-") || len(k) < 2 {
			return toa.Record{}, &ParseError{Line: n, Msg: fmt.Sprintf("expected -flag, got %q", k)}
		}
		if _, dup := rec.Flags[k[1:]]; dup {
			return toa.Record{}, &ParseError{Line: n, Msg: fmt.Sprintf("duplicate flag %s", k)}
		}
		rec.Flags[k[1:]] = v
	}
	return rec, nil
}

// Write emits t in FORMAT 1. Flags are written in key order. Names and
// flag values must not contain whitespace.
func Write(w io.Writer, t *toa.Table) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "FORMAT 1")
	for i := 0; i < t.Len(); i++ {
		line, err := formatRecord(t.Record(i))
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		bw.WriteString(line)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteFile writes t to path, replacing any existing file.
func WriteFile(path string, t *toa.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create tim file: %w", err)
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatRecord(r toa.Record) (string, error) {
	name := r.Name
	switch {
	case name == "":
		name = emptyName
	case !readableName(name):
		return "", fmt.Errorf("name %q cannot be written", r.Name)
	}
	if hasSpace(r.Obs) {
		return "", fmt.Errorf("observatory %q cannot be written", r.Obs)
	}

	freq := "0"
	if !math.IsInf(r.FreqMHz, 1) {
		freq = formatFloat(r.FreqMHz)
	}

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(freq)
	b.WriteByte(' ')
	b.WriteString(r.MJD.String())
	b.WriteByte(' ')
	b.WriteString(formatFloat(r.ErrorUS))
	b.WriteByte(' ')
	b.WriteString(r.Obs)

	keys := make([]string, 0, len(r.Flags))
	for k := range r.Flags {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := r.Flags[k]
		if hasSpace(k) || v == "" || hasSpace(v) {
			return "", fmt.Errorf("flag -%s value %q cannot be written", k, v)
		}
		b.WriteString(" -")
		b.WriteString(k)
		b.WriteByte(' ')
		b.WriteString(v)
	}
	return b.String(), nil
}

// formatFloat is the shortest decimal that parses back to f.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func hasSpace(s string) bool {
	return strings.ContainsFunc(s, unicode.IsSpace)
}

// readableName reports whether name survives as the first field of a line.
func readableName(name string) bool {
	return name != emptyName && name != "C" && !hasSpace(name) &&
		!strings.HasPrefix(name, "#") && !isDirective(name)
}
