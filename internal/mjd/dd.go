package mjd

import (
	"fmt"
	"math"
)

// DD is an unevaluated sum Hi + Lo with |Lo| <= ulp(Hi)/2.
type DD struct {
	Hi float64
	Lo float64
}

// NewDD returns x as a DD with no low part.
func NewDD(x float64) DD {
	return DD{Hi: x}
}

// TwoSum returns s = fl(a+b) and the exact rounding error e, so a+b == s+e.
func TwoSum(a, b float64) (s, e float64) {
	s = a + b
	bb := s - a
	e = (a - (s - bb)) + (b - bb)
	return s, e
}

// quickTwoSum is TwoSum for |a| >= |b|.
func quickTwoSum(a, b float64) (s, e float64) {
	s = a + b
	e = b - (s - a)
	return s, e
}

// TwoProd returns p = fl(a*b) and the exact rounding error e, so a*b == p+e.
func TwoProd(a, b float64) (p, e float64) {
	p = a * b
	e = math.FMA(a, b, -p)
	return p, e
}

// Add returns x + y.
func (x DD) Add(y DD) DD {
	s, e := TwoSum(x.Hi, y.Hi)
	t, f := TwoSum(x.Lo, y.Lo)
	e += t
	s, e = quickTwoSum(s, e)
	e += f
	s, e = quickTwoSum(s, e)
	return DD{Hi: s, Lo: e}
}

// AddFloat returns x + b.
func (x DD) AddFloat(b float64) DD {
	s, e := TwoSum(x.Hi, b)
	e += x.Lo
	s, e = quickTwoSum(s, e)
	return DD{Hi: s, Lo: e}
}

// Neg returns -x.
func (x DD) Neg() DD {
	return DD{Hi: -x.Hi, Lo: -x.Lo}
}

// Sub returns x - y.
func (x DD) Sub(y DD) DD {
	return x.Add(y.Neg())
}

// Mul returns x * y.
func (x DD) Mul(y DD) DD {
	p, e := TwoProd(x.Hi, y.Hi)
	e += x.Hi*y.Lo + x.Lo*y.Hi
	p, e = quickTwoSum(p, e)
	return DD{Hi: p, Lo: e}
}

// MulFloat returns x * b.
func (x DD) MulFloat(b float64) DD {
	p, e := TwoProd(x.Hi, b)
	e += x.Lo * b
	p, e = quickTwoSum(p, e)
	return DD{Hi: p, Lo: e}
}

// DivFloat returns x / b.
func (x DD) DivFloat(b float64) DD {
	q1 := x.Hi / b
	p, e := TwoProd(q1, b)
	s, f := TwoSum(x.Hi, -p)
	f -= e
	f += x.Lo
	q2 := (s + f) / b
	q1, q2 = quickTwoSum(q1, q2)
	return DD{Hi: q1, Lo: q2}
}

// Round returns the integer nearest to x, ties away from zero.
func (x DD) Round() DD {
	r := math.Round(x.Hi)
	if r == x.Hi {
		// Hi is already integral; the fraction lives in Lo.
		hi, lo := quickTwoSum(r, math.Round(x.Lo))
		return DD{Hi: hi, Lo: lo}
	}
	if math.Abs(r-x.Hi) == 0.5 {
		switch {
		case r > x.Hi && x.Lo < 0:
			r--
		case r < x.Hi && x.Lo > 0:
			r++
		}
	}
	return DD{Hi: r}
}

// Float64 returns the nearest float64 to x.
func (x DD) Float64() float64 {
	return x.Hi + x.Lo
}

// IsFinite reports whether both parts are finite.
func (x DD) IsFinite() bool {
	return !math.IsNaN(x.Hi) && !math.IsInf(x.Hi, 0) && !math.IsNaN(x.Lo) && !math.IsInf(x.Lo, 0)
}

func (x DD) String() string {
	return fmt.Sprintf("%.17g%+.17g", x.Hi, x.Lo)
}
