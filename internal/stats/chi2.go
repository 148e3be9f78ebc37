package stats

import "math"

// Chi2 returns sum((resids[i]/uncerts[i])^2).
//
// Fails with *ShapeMismatchError when the vectors differ in length and with
// *InvalidValueError for a non-finite residual, an uncertainty that is not
// strictly positive and finite, or a term or total that overflows. An empty
// pair of vectors yields 0.
func Chi2(resids, uncerts []float64) (float64, error) {
	if len(resids) != len(uncerts) {
		return 0, &ShapeMismatchError{Left: len(resids), Right: len(uncerts)}
	}
	terms := make([]float64, len(resids))
	for i, r := range resids {
		if err := checkPair(i, r, uncerts[i]); err != nil {
			return 0, err
		}
		q := r / uncerts[i]
		terms[i] = q * q
		if !isFinite(terms[i]) {
			return 0, &InvalidValueError{Name: "chi2 term", Index: i, Value: terms[i]}
		}
	}
	total := Sum(terms)
	if !isFinite(total) {
		return 0, &InvalidValueError{Name: "chi2", Index: -1, Value: total}
	}
	return total, nil
}

// WeightedMean returns sum(w*x)/sum(w) with w = 1/sigma^2.
//
// Fails with *InvalidValueError when a weight underflows or overflows, or
// when the mean is not finite.
func WeightedMean(xs, sigmas []float64) (float64, error) {
	num, den, err := weighted(xs, sigmas, func(x float64) float64 { return x })
	if err != nil {
		return 0, err
	}
	mean := num / den
	if !isFinite(mean) {
		return 0, &InvalidValueError{Name: "weighted mean", Index: -1, Value: mean}
	}
	return mean, nil
}

// WeightedRMS returns the weighted standard deviation of xs about their
// weighted mean, sqrt(sum(w*(x-mean)^2)/sum(w)).
func WeightedRMS(xs, sigmas []float64) (float64, error) {
	mean, err := WeightedMean(xs, sigmas)
	if err != nil {
		return 0, err
	}
	num, den, err := weighted(xs, sigmas, func(x float64) float64 {
		d := x - mean
		return d * d
	})
	if err != nil {
		return 0, err
	}
	rms := math.Sqrt(num / den)
	if !isFinite(rms) {
		return 0, &InvalidValueError{Name: "weighted rms", Index: -1, Value: rms}
	}
	return rms, nil
}

func weighted(xs, sigmas []float64, f func(float64) float64) (num, den float64, err error) {
	if len(xs) != len(sigmas) {
		return 0, 0, &ShapeMismatchError{Left: len(xs), Right: len(sigmas)}
	}
	if len(xs) == 0 {
		return 0, 0, ErrEmpty
	}
	nums := make([]float64, len(xs))
	dens := make([]float64, len(xs))
	for i, x := range xs {
		if err := checkPair(i, x, sigmas[i]); err != nil {
			return 0, 0, err
		}
		w := 1 / (sigmas[i] * sigmas[i])
		if w == 0 || !isFinite(w) {
			return 0, 0, &InvalidValueError{Name: "weight", Index: i, Value: w}
		}
		nums[i] = w * f(x)
		if !isFinite(nums[i]) {
			return 0, 0, &InvalidValueError{Name: "weighted term", Index: i, Value: nums[i]}
		}
		dens[i] = w
	}
	num, den = Sum(nums), Sum(dens)
	if !isFinite(num) || !isFinite(den) {
		return 0, 0, &InvalidValueError{Name: "weighted sum", Index: -1, Value: num}
	}
	return num, den, nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func checkPair(i int, x, sigma float64) error {
	if !isFinite(x) {
		return &InvalidValueError{Name: "residual", Index: i, Value: x}
	}
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return &InvalidValueError{Name: "uncertainty", Index: i, Value: sigma}
	}
	return nil
}
