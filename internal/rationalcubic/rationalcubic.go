// Package rationalcubic implements the shape-preserving rational cubic
// interpolation of Delbourgo and Gregory (1985) as used by the implied
// volatility initial guess.
//
// An interpolant over [xl, xr] is fixed by the end values yl, yr, the end
// slopes dl, dr and a control parameter r. r = 3 reduces to the cubic
// Hermite spline; r → ∞ approaches linear interpolation.
package rationalcubic

import (
	"math"

	"github.com/contactkeval/lets-be-rational/internal/constants"
)

const (
	// MinimumControlParameter is the smallest r for which the denominator
	// 1 + (r-3)t(1-t) stays positive on [0,1].
	MinimumControlParameter = -(1 - constants.SqrtDBLEpsilon)

	// MaximumControlParameter is the r at and above which the interpolant is
	// evaluated as a straight line.
	MaximumControlParameter = 2 / (constants.DBLEpsilon * constants.DBLEpsilon)
)

func isZero(x float64) bool {
	return math.Abs(x) < constants.DBLMin
}

// Interpolate evaluates the rational cubic through (xl, yl) and (xr, yr)
// with end slopes dl and dr and control parameter r at x.
//
// A zero-width interval returns the mean of yl and yr.
func Interpolate(x, xl, xr, yl, yr, dl, dr, r float64) float64 {
	h := xr - xl
	if math.Abs(h) <= 0 {
		return 0.5 * (yl + yr)
	}
	t := (x - xl) / h
	if !(r >= MaximumControlParameter) {
		omt := 1 - t
		t2 := t * t
		omt2 := omt * omt
		return (yr*t2*t + (r*yr-h*dr)*t2*omt + (r*yl+h*dl)*t*omt2 + yl*omt2*omt) /
			(1 + (r-3)*t*omt)
	}
	return yr*t + yl*(1-t)
}

// ControlParameterToFitSecondDerivativeAtLeftSide returns the r for which the
// interpolant's second derivative at xl equals secondDerivativeL.
func ControlParameterToFitSecondDerivativeAtLeftSide(xl, xr, yl, yr, dl, dr, secondDerivativeL float64) float64 {
	h := xr - xl
	numerator := 0.5*h*secondDerivativeL + (dr - dl)
	if isZero(numerator) {
		return 0
	}
	denominator := (yr-yl)/h - dl
	if isZero(denominator) {
		return saturated(numerator)
	}
	return numerator / denominator
}

// ControlParameterToFitSecondDerivativeAtRightSide returns the r for which the
// interpolant's second derivative at xr equals secondDerivativeR.
func ControlParameterToFitSecondDerivativeAtRightSide(xl, xr, yl, yr, dl, dr, secondDerivativeR float64) float64 {
	h := xr - xl
	numerator := 0.5*h*secondDerivativeR + (dr - dl)
	if isZero(numerator) {
		return 0
	}
	denominator := dr - (yr-yl)/h
	if isZero(denominator) {
		return saturated(numerator)
	}
	return numerator / denominator
}

func saturated(numerator float64) float64 {
	if numerator > 0 {
		return MaximumControlParameter
	}
	return MinimumControlParameter
}

// MinimumRationalCubicControlParameter returns the smallest r that keeps the
// interpolant monotonic (when the data are monotonic) and convex or concave
// (when the data are), for end slopes dl, dr and secant slope s.
//
// When a bound is degenerate, preferShapePreservationOverSmoothness selects the
// maximum control parameter, i.e. the linear interpolant.
func MinimumRationalCubicControlParameter(dl, dr, s float64, preferShapePreservationOverSmoothness bool) float64 {
	monotonic := dl*s >= 0 && dr*s >= 0
	convex := dl <= s && s <= dr
	concave := dl >= s && s >= dr
	if !monotonic && !convex && !concave {
		return MinimumControlParameter
	}

	drMinusDl := dr - dl
	drMinusS := dr - s
	sMinusDl := s - dl
	r1 := -constants.DBLMax
	r2 := r1

	if monotonic {
		if !isZero(s) {
			r1 = (dr + dl) / s
		} else if preferShapePreservationOverSmoothness {
			r1 = MaximumControlParameter
		}
	}

	if convex || concave {
		if !(isZero(sMinusDl) || isZero(drMinusS)) {
			r2 = math.Max(math.Abs(drMinusDl/drMinusS), math.Abs(drMinusDl/sMinusDl))
		} else if preferShapePreservationOverSmoothness {
			r2 = MaximumControlParameter
		}
	} else if monotonic && preferShapePreservationOverSmoothness {
		r2 = MaximumControlParameter
	}

	return math.Max(MinimumControlParameter, math.Max(r1, r2))
}

// ConvexControlParameterToFitSecondDerivativeAtLeftSide fits the left second
// derivative but never goes below the shape-preserving minimum.
func ConvexControlParameterToFitSecondDerivativeAtLeftSide(xl, xr, yl, yr, dl, dr, secondDerivativeL float64, preferShapePreservationOverSmoothness bool) float64 {
	r := ControlParameterToFitSecondDerivativeAtLeftSide(xl, xr, yl, yr, dl, dr, secondDerivativeL)
	rMin := MinimumRationalCubicControlParameter(dl, dr, (yr-yl)/(xr-xl), preferShapePreservationOverSmoothness)
	return math.Max(r, rMin)
}

// ConvexControlParameterToFitSecondDerivativeAtRightSide fits the right second
// derivative but never goes below the shape-preserving minimum.
func ConvexControlParameterToFitSecondDerivativeAtRightSide(xl, xr, yl, yr, dl, dr, secondDerivativeR float64, preferShapePreservationOverSmoothness bool) float64 {
	r := ControlParameterToFitSecondDerivativeAtRightSide(xl, xr, yl, yr, dl, dr, secondDerivativeR)
	rMin := MinimumRationalCubicControlParameter(dl, dr, (yr-yl)/(xr-xl), preferShapePreservationOverSmoothness)
	return math.Max(r, rMin)
}
