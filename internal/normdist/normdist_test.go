package normdist

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCDFReferenceValues(t *testing.T) {
	assert.InDelta(t, 0.618891110513, CDF(0.302569738839), 1e-12)
	assert.InDelta(t, 0.564011732814, CDF(0.161148382602), 1e-12)
	assert.Equal(t, 0.5, CDF(0))
}

func TestCDFSymmetry(t *testing.T) {
	for z := -8.0; z <= 8; z += 0.25 {
		assert.InDelta(t, 1.0, CDF(z)+CDF(-z), 1e-15, "z=%g", z)
	}
}

func TestCDFAsymptoticBranch(t *testing.T) {
	// Both sides of the switch at -10 agree with erfc.
	for _, z := range []float64{-10, -10.5, -12, -20, -37} {
		expected := 0.5 * math.Erfc(-z/math.Sqrt2)
		assert.InEpsilon(t, expected, CDF(z), 1e-13, "z=%g", z)
	}
	assert.InEpsilon(t, 7.619853024160593e-24, CDF(-10), 1e-13)
	assert.Equal(t, 0.0, CDF(-1e9))
}

func TestCDFMonotone(t *testing.T) {
	prev := 0.0
	for z := -30.0; z <= 9; z += 0.01 {
		v := CDF(z)
		require.GreaterOrEqual(t, v, prev, "z=%g", z)
		prev = v
	}
	assert.Equal(t, 1.0, prev)
}

func TestPDF(t *testing.T) {
	assert.InDelta(t, 0.3989422804014327, PDF(0), 1e-16)
	assert.Equal(t, PDF(1.3), PDF(-1.3))
	assert.InEpsilon(t, math.Exp(-2)/math.Sqrt(2*math.Pi), PDF(2), 1e-15)
}

func TestInverseCDF(t *testing.T) {
	assert.Equal(t, 0.0, InverseCDF(0.5))
	assert.InDelta(t, 1.959963984540054, InverseCDF(0.975), 1e-14)
	assert.InDelta(t, -1.959963984540054, InverseCDF(0.025), 1e-14)
	assert.InDelta(t, -37.0470962993612, InverseCDF(1e-300), 1e-12)
}

func TestInverseCDFBoundaries(t *testing.T) {
	assert.True(t, math.IsInf(InverseCDF(0), -1))
	assert.True(t, math.IsNaN(InverseCDF(-0.1)))
	assert.True(t, math.IsInf(InverseCDF(1), -1))
	assert.True(t, math.IsNaN(InverseCDF(1.1)))
}

func TestInverseConsistency(t *testing.T) {
	for z := -37.0; z <= 3; z += 0.1 {
		assert.InDelta(t, z, InverseCDF(CDF(z)), 1e-14*math.Max(1, math.Abs(z)), "z=%g", z)
	}
	for i := 1; i < 1000; i++ {
		u := float64(i) / 1000
		assert.InEpsilon(t, u, CDF(InverseCDF(u)), 1e-14, "u=%g", u)
	}
}
