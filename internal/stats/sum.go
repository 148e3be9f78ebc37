package stats

import (
	"cmp"
	"math"
	"slices"
)

// Sum returns the compensated sum of xs in canonical order.
func Sum(xs []float64) float64 {
	buf := slices.Clone(xs)
	slices.SortFunc(buf, canonical)
	return neumaier(buf)
}

// canonical orders by magnitude, then by signed value, so that the sort
// result is unique for a given multiset.
func canonical(a, b float64) int {
	if c := cmp.Compare(math.Abs(a), math.Abs(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

func neumaier(xs []float64) float64 {
	var sum, c float64
	for _, x := range xs {
		t := sum + x
		if math.Abs(sum) >= math.Abs(x) {
			c += (sum - t) + x
		} else {
			c += (x - t) + sum
		}
		sum = t
	}
	return sum + c
}
