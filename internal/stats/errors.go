package stats

import (
	"errors"
	"fmt"
)

// ErrEmpty is returned by reductions that are undefined over zero terms.
var ErrEmpty = errors.New("reduction over zero terms")

// ShapeMismatchError reports vectors that must be index-aligned but differ
// in length.
type ShapeMismatchError struct {
	Left  int
	Right int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %d values vs %d uncertainties", e.Left, e.Right)
}

// InvalidValueError reports a value that cannot enter or leave a reduction:
// a non-finite value, a non-positive uncertainty, or a weight, term or total
// outside the float64 range. Index is -1 for a whole-vector result.
type InvalidValueError struct {
	Name  string
	Index int
	Value float64
}

func (e *InvalidValueError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid %s: %v", e.Name, e.Value)
	}
	return fmt.Sprintf("invalid %s at index %d: %v", e.Name, e.Index, e.Value)
}

// IsShapeMismatch reports whether err is or wraps a ShapeMismatchError.
func IsShapeMismatch(err error) bool {
	var se *ShapeMismatchError
	return errors.As(err, &se)
}
