package appraisal

import (
	"errors"
	"math"
)

// ErrNoRoot is returned by a RootFinder when the bracket does not straddle a
// sign change or the search fails to converge.
var ErrNoRoot = errors.New("appraisal: no root in bracket")

// RootFinder locates x in [lo, hi] with f(x) ~ 0, given f(lo) and f(hi) of
// opposite sign.
type RootFinder interface {
	FindRoot(f func(float64) float64, lo, hi float64) (float64, error)
}

// Bisection is the dependency-free baseline root finder. The zero value
// uses a 1e-6 tolerance on the bracket width and 200 iterations.
type Bisection struct {
	Tol     float64
	MaxIter int
}

func (b Bisection) FindRoot(f func(float64) float64, lo, hi float64) (float64, error) {
	tol := b.Tol
	if tol == 0 {
		tol = 1e-6
	}
	maxIter := b.MaxIter
	if maxIter == 0 {
		maxIter = 200
	}

	flo := f(lo)
	fhi := f(hi)
	if flo == 0 {
		return lo, nil
	}
	if fhi == 0 {
		return hi, nil
	}
	if flo*fhi > 0 {
		return 0, ErrNoRoot
	}

	for i := 0; i < maxIter; i++ {
		mid := (lo + hi) / 2
		fmid := f(mid)
		if fmid == 0 || (hi-lo)/2 < tol {
			return mid, nil
		}
		if flo*fmid < 0 {
			hi = mid
		} else {
			lo = mid
			flo = fmid
		}
	}
	return (lo + hi) / 2, nil
}

// Brent is a bracketed root finder combining bisection, secant, and inverse
// quadratic interpolation. Faster than plain bisection on smooth functions
// like an NPV curve; falls back to bisection steps when interpolation
// misbehaves. The zero value uses a 1e-6 tolerance and 200 iterations.
type Brent struct {
	Tol     float64
	MaxIter int
}

func (br Brent) FindRoot(f func(float64) float64, lo, hi float64) (float64, error) {
	tol := br.Tol
	if tol == 0 {
		tol = 1e-6
	}
	maxIter := br.MaxIter
	if maxIter == 0 {
		maxIter = 200
	}

	a, b := lo, hi
	fa, fb := f(a), f(b)
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if fa*fb > 0 {
		return 0, ErrNoRoot
	}

	// Keep b as the best estimate: |f(b)| <= |f(a)|.
	if math.Abs(fa) < math.Abs(fb) {
		a, b = b, a
		fa, fb = fb, fa
	}

	c, fc := a, fa
	mflag := true
	var d float64

	for i := 0; i < maxIter; i++ {
		if fb == 0 || math.Abs(b-a) < tol {
			return b, nil
		}

		var s float64
		if fa != fc && fb != fc {
			// Inverse quadratic interpolation.
			s = a*fb*fc/((fa-fb)*(fa-fc)) +
				b*fa*fc/((fb-fa)*(fb-fc)) +
				c*fa*fb/((fc-fa)*(fc-fb))
		} else {
			// Secant step.
			s = b - fb*(b-a)/(fb-fa)
		}

		lowBound := (3*a + b) / 4
		useBisect := false
		if (s < math.Min(lowBound, b) || s > math.Max(lowBound, b)) ||
			(mflag && math.Abs(s-b) >= math.Abs(b-c)/2) ||
			(!mflag && math.Abs(s-b) >= math.Abs(c-d)/2) ||
			(mflag && math.Abs(b-c) < tol) ||
			(!mflag && math.Abs(c-d) < tol) {
			s = (a + b) / 2
			useBisect = true
		}
		mflag = useBisect

		fs := f(s)
		d = c
		c, fc = b, fb

		if fa*fs < 0 {
			b, fb = s, fs
		} else {
			a, fa = s, fs
		}
		if math.Abs(fa) < math.Abs(fb) {
			a, b = b, a
			fa, fb = fb, fa
		}
	}
	return b, nil
}
