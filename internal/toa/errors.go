package toa

import (
	"errors"
	"fmt"
)

// MalformedRecordError reports a record with a missing or invalid field.
// Index is -1 for table-level problems such as an unknown time scale.
type MalformedRecordError struct {
	Index  int
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed table: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed record %d: %s: %s", e.Index, e.Field, e.Reason)
}

// IndexError reports an invalid row index or permutation.
type IndexError struct {
	Index  int
	Len    int
	Reason string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index error: %s (index=%d, len=%d)", e.Reason, e.Index, e.Len)
}

// DimensionMismatchError reports incompatible time scales.
type DimensionMismatchError struct {
	Op   string
	Want TimeScale
	Got  TimeScale
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch in %s: want time scale %q, got %q", e.Op, e.Want, e.Got)
}

// EmptyTableError reports a reduction that is undefined over zero rows.
type EmptyTableError struct {
	Op string
}

func (e *EmptyTableError) Error() string {
	return fmt.Sprintf("empty table: %s is undefined over zero rows", e.Op)
}

// IsMalformed reports whether err is or wraps a MalformedRecordError.
func IsMalformed(err error) bool {
	var me *MalformedRecordError
	return errors.As(err, &me)
}

// IsIndexError reports whether err is or wraps an IndexError.
func IsIndexError(err error) bool {
	var ie *IndexError
	return errors.As(err, &ie)
}

// IsDimensionMismatch reports whether err is or wraps a DimensionMismatchError.
func IsDimensionMismatch(err error) bool {
	var de *DimensionMismatchError
	return errors.As(err, &de)
}

// IsEmptyTable reports whether err is or wraps an EmptyTableError.
func IsEmptyTable(err error) bool {
	var ee *EmptyTableError
	return errors.As(err, &ee)
}
