package rationalcubic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolateEndpoints(t *testing.T) {
	for _, r := range []float64{MinimumControlParameter, 0, 3, 10, 1e6} {
		assert.InDelta(t, 2.0, Interpolate(1, 1, 3, 2, 5, 0.5, 4, r), 1e-15, "r=%g", r)
		assert.InDelta(t, 5.0, Interpolate(3, 1, 3, 2, 5, 0.5, 4, r), 1e-15, "r=%g", r)
	}
}

func TestInterpolateDegenerateCases(t *testing.T) {
	t.Run("zero width interval averages", func(t *testing.T) {
		assert.Equal(t, 3.5, Interpolate(7, 1, 1, 2, 5, 0, 0, 3))
	})
	t.Run("maximum control parameter is linear", func(t *testing.T) {
		assert.InDelta(t, 3.5, Interpolate(2, 1, 3, 2, 5, 100, -100, MaximumControlParameter), 1e-15)
	})
	t.Run("r=3 is the cubic Hermite spline", func(t *testing.T) {
		// y = x³ on [0,1] with slopes 0 and 3 is reproduced exactly.
		for _, x := range []float64{0.1, 0.25, 0.5, 0.9} {
			assert.InDelta(t, x*x*x, Interpolate(x, 0, 1, 0, 1, 0, 3, 3), 1e-15, "x=%g", x)
		}
	})
}

func TestControlParameterFitsSecondDerivative(t *testing.T) {
	// A straight line has a zero numerator and therefore r = 0.
	assert.Equal(t, 0.0, ControlParameterToFitSecondDerivativeAtLeftSide(0, 1, 0, 1, 1, 1, 0))
	assert.Equal(t, 0.0, ControlParameterToFitSecondDerivativeAtRightSide(0, 1, 0, 1, 1, 1, 0))

	// Data from y = x² on [0,1]: slopes 0 and 2, second derivative 2.
	// numerator = 0.5·1·2 + 2 = 3, left denominator = 1 - 0 = 1.
	assert.Equal(t, 3.0, ControlParameterToFitSecondDerivativeAtLeftSide(0, 1, 0, 1, 0, 2, 2))
	// right denominator = 2 - 1 = 1.
	assert.Equal(t, 3.0, ControlParameterToFitSecondDerivativeAtRightSide(0, 1, 0, 1, 0, 2, 2))
}

func TestControlParameterSaturatesOnZeroDenominator(t *testing.T) {
	// Secant equals the left slope, so the left denominator vanishes.
	assert.Equal(t, MaximumControlParameter, ControlParameterToFitSecondDerivativeAtLeftSide(0, 1, 0, 1, 1, 2, 0))
	assert.Equal(t, MinimumControlParameter, ControlParameterToFitSecondDerivativeAtLeftSide(0, 1, 0, 1, 1, 0.5, 0))
}

func TestMinimumRationalCubicControlParameter(t *testing.T) {
	t.Run("neither monotone nor convex", func(t *testing.T) {
		assert.Equal(t, MinimumControlParameter, MinimumRationalCubicControlParameter(1, -1, 2, true))
	})
	t.Run("monotone and convex", func(t *testing.T) {
		// (dr+dl)/s = 2 and max(|(dr-dl)/(dr-s)|, |(dr-dl)/(s-dl)|) = 2.
		assert.Equal(t, 2.0, MinimumRationalCubicControlParameter(0, 2, 1, false))
	})
	t.Run("degenerate convex prefers shape", func(t *testing.T) {
		assert.Equal(t, MaximumControlParameter, MinimumRationalCubicControlParameter(1, 2, 1, true))
		assert.Equal(t, 3.0, MinimumRationalCubicControlParameter(1, 2, 1, false))
	})
	t.Run("floor", func(t *testing.T) {
		assert.GreaterOrEqual(t, MinimumRationalCubicControlParameter(0, 0, 0, false), MinimumControlParameter)
	})
}

func TestConvexControlParameterPreservesShape(t *testing.T) {
	// Convex data with a deliberately small target second derivative: the
	// fitted r is raised to the shape-preserving minimum and the interpolant
	// stays below the chord.
	xl, xr, yl, yr, dl, dr := 0.0, 1.0, 0.0, 1.0, 0.1, 3.0
	r := ConvexControlParameterToFitSecondDerivativeAtLeftSide(xl, xr, yl, yr, dl, dr, -50, false)
	assert.GreaterOrEqual(t, r, MinimumRationalCubicControlParameter(dl, dr, 1, false))
	for x := 0.05; x < 1; x += 0.05 {
		y := Interpolate(x, xl, xr, yl, yr, dl, dr, r)
		assert.LessOrEqual(t, y, x+1e-15, "x=%g", x)
	}

	r = ConvexControlParameterToFitSecondDerivativeAtRightSide(xl, xr, yl, yr, dl, dr, -50, false)
	assert.GreaterOrEqual(t, r, MinimumRationalCubicControlParameter(dl, dr, 1, false))
	assert.False(t, math.IsNaN(Interpolate(0.5, xl, xr, yl, yr, dl, dr, r)))
}
