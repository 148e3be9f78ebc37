package toa

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content-addressed digests.
// Version suffix enables future algorithm migration.
const (
	DomainRecord = "pulsar/toa/v1"
	DomainTable  = "pulsar/table/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordDigest returns the content address of a normalized record.
//
// Floats are encoded by their IEEE-754 bit pattern, so two records have the
// same digest exactly when every field is bitwise equal.
func RecordDigest(r Record) string {
	return hashWithDomain(DomainRecord, canonicalRecord(r))
}

// Fingerprint returns a digest of the multiset of records and the time
// scale. It does not depend on row order: any permutation of t has the same
// fingerprint.
func (t *Table) Fingerprint() string {
	digests := make([]string, len(t.records))
	for i, r := range t.records {
		digests[i] = RecordDigest(r)
	}
	slices.Sort(digests)

	var buf bytes.Buffer
	buf.WriteString(string(t.scale))
	for _, d := range digests {
		buf.WriteByte('\n')
		buf.WriteString(d)
	}
	return hashWithDomain(DomainTable, buf.Bytes())
}

// Equivalent reports whether a and b hold the same multiset of records in
// the same time scale.
func Equivalent(a, b *Table) bool {
	return a.Len() == b.Len() && a.Fingerprint() == b.Fingerprint()
}

// canonicalRecord renders r as canonical JSON: keys in UTF-16 code unit
// order, NFC strings without HTML escaping, floats as hex bit patterns.
func canonicalRecord(r Record) []byte {
	fields := map[string][]byte{
		"day":   []byte(strconv.FormatInt(r.MJD.Day, 10)),
		"frac":  canonicalFloat(r.MJD.Frac),
		"freq":  canonicalFloat(r.FreqMHz),
		"obs":   canonicalString(r.Obs),
		"error": canonicalFloat(r.ErrorUS),
		"name":  canonicalString(r.Name),
	}
	if len(r.Flags) > 0 {
		flags := make(map[string][]byte, len(r.Flags))
		for k, v := range r.Flags {
			flags[k] = canonicalString(v)
		}
		fields["flags"] = canonicalObject(flags)
	}
	return canonicalObject(fields)
}

func canonicalFloat(f float64) []byte {
	return canonicalString("0x" + strconv.FormatUint(math.Float64bits(f), 16))
}

func canonicalString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(norm.NFC.String(s))
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
}

func canonicalObject(fields map[string][]byte) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(canonicalString(k))
		buf.WriteByte(':')
		buf.Write(fields[k])
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// compareUTF16 orders strings by UTF-16 code units. sort.Strings uses UTF-8
// bytes, which orders supplementary-plane characters differently.
func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}
