package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const referenceTolerance = 1e-12

func TestBlackReferenceValue(t *testing.T) {
	actual := Black(100, 100, 0.2, 0.5, Call)
	assert.InDelta(t, 5.637197779701664, actual, referenceTolerance)
}

func TestNormalisedBlackReferenceValues(t *testing.T) {
	F, K, T, sigma := 100.0, 95.0, 0.5, 0.3
	x := math.Log(F / K)
	s := sigma * math.Sqrt(T)

	assert.InDelta(t, 0.061296663817558904, NormalisedBlack(x, s, Put), referenceTolerance)
	assert.InDelta(t, 0.11259558142181655, NormalisedBlack(x, s, Call), referenceTolerance)
	assert.InDelta(t, 0.11259558142181655, NormalisedBlackCall(x, s), referenceTolerance)
}

func TestNormalisedVegaReferenceValues(t *testing.T) {
	tests := []struct {
		x, s, expected float64
	}{
		{0, 0, 0.3989422804014327},
		{0, 2.937528694999807, 0.13566415614561067},
		{0, 0.2, 0.3969525474770118},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.expected, NormalisedVega(tc.x, tc.s), referenceTolerance, "x=%g s=%g", tc.x, tc.s)
	}
}

func TestNormalisedVegaLimits(t *testing.T) {
	assert.Equal(t, 0.0, NormalisedVega(0.5, 0))
	assert.Equal(t, 0.0, NormalisedVega(-0.5, 1e-160))
	assert.Greater(t, NormalisedVega(-0.5, 1.0), 0.0)
	// Symmetric in x.
	assert.InDelta(t, NormalisedVega(0.3, 0.7), NormalisedVega(-0.3, 0.7), 1e-16)
}

func TestBlackPutCallParity(t *testing.T) {
	for _, F := range []float64{1, 100, 1000} {
		for _, m := range []float64{-1, -0.2, 0, 0.2, 1} {
			for _, sigma := range []float64{0.05, 0.3, 1.5} {
				K := F * math.Exp(m)
				T := 0.75
				call := Black(F, K, sigma, T, Call)
				put := Black(F, K, sigma, T, Put)
				assert.InDelta(t, F-K, call-put, 1e-12*math.Max(F, K), "F=%g K=%g sigma=%g", F, K, sigma)
			}
		}
	}
}

func TestNormalisedBlackPutCallParity(t *testing.T) {
	for _, x := range []float64{-3, -0.5, -1e-3, 0, 1e-3, 0.5, 3} {
		for _, s := range []float64{0.01, 0.2, 1, 4} {
			call := NormalisedBlack(x, s, Call)
			put := NormalisedBlack(x, s, Put)
			assert.InDelta(t, 2*math.Sinh(0.5*x), call-put, 1e-14, "x=%g s=%g", x, s)
		}
	}
}

func TestBlackNeverBelowIntrinsic(t *testing.T) {
	assert.Equal(t, 10.0, Black(110, 100, 0, 1, Call))
	assert.Equal(t, 0.0, Black(110, 100, 0, 1, Put))
	assert.GreaterOrEqual(t, Black(110, 100, 1e-9, 1, Call), 10.0)
	assert.GreaterOrEqual(t, Black(90, 100, 1e-9, 1, Put), 10.0)
}

func TestBlackMonotoneInVolatility(t *testing.T) {
	prev := 0.0
	for sigma := 0.01; sigma < 3; sigma += 0.01 {
		price := Black(100, 120, sigma, 1, Call)
		require.GreaterOrEqual(t, price, prev, "sigma=%g", sigma)
		prev = price
	}
	assert.Less(t, prev, 100.0)
}

func TestNormalisedBlackCallRegionsAgree(t *testing.T) {
	t.Run("asymptotic vs erfcx", func(t *testing.T) {
		for _, p := range [][2]float64{{-12, 0.6}, {-15, 1}, {-11, 0.3}} {
			h, tt := p[0], p[1]
			expected := normalisedBlackCallUsingErfcx(h, tt)
			assert.InEpsilon(t, expected, asymptoticExpansionOfNormalisedBlackCall(h, tt), 1e-13, "h=%g t=%g", h, tt)
		}
	})
	t.Run("small t vs erfcx", func(t *testing.T) {
		for _, p := range [][2]float64{{-0.5, 0.1}, {-2, 0.15}, {-0.1, 0.05}} {
			h, tt := p[0], p[1]
			expected := normalisedBlackCallUsingErfcx(h, tt)
			assert.InEpsilon(t, expected, smallTExpansionOfNormalisedBlackCall(h, tt), 1e-13, "h=%g t=%g", h, tt)
		}
	})
	t.Run("norm cdf vs erfcx", func(t *testing.T) {
		for _, p := range [][2]float64{{-0.3, 2}, {-1, 3}} {
			x, s := p[0], p[1]
			expected := normalisedBlackCallUsingErfcx(x/s, 0.5*s)
			assert.InEpsilon(t, expected, normalisedBlackCallUsingNormCDF(x, s), 1e-13, "x=%g s=%g", x, s)
		}
	})
}

func TestAsymptoticExpansionCoefficients(t *testing.T) {
	assert.Equal(t, []float64{6, 2}, asymptoticExpansionCoefficients[0])
	assert.Equal(t, []float64{10, 20, 2}, asymptoticExpansionCoefficients[1])
	assert.Equal(t, []float64{14, 70, 42, 2}, asymptoticExpansionCoefficients[2])
	last := asymptoticExpansionCoefficients[16]
	require.Len(t, last, 18)
	assert.Equal(t, 70.0, last[0])
	assert.Equal(t, 2.0, last[17])
}

func TestNormalisedIntrinsic(t *testing.T) {
	assert.Equal(t, 0.0, NormalisedIntrinsic(-0.2, Call))
	assert.Equal(t, 0.0, NormalisedIntrinsic(0.2, Put))
	assert.Equal(t, 0.0, NormalisedIntrinsic(0, Call))

	// Series branch and exponential branch both match 2·sinh(x/2).
	for _, x := range []float64{1e-4, 0.05, 0.1, 0.5, 2} {
		assert.InEpsilon(t, 2*math.Sinh(0.5*x), NormalisedIntrinsic(x, Call), 1e-15, "x=%g", x)
		assert.InEpsilon(t, 2*math.Sinh(0.5*x), NormalisedIntrinsic(-x, Put), 1e-15, "x=%g", x)
	}
}

func TestNormalisedBlackAtZeroVolatilityIsIntrinsic(t *testing.T) {
	assert.Equal(t, 0.0, NormalisedBlackCall(-0.4, 0))
	assert.InEpsilon(t, NormalisedIntrinsic(0.4, Call), NormalisedBlackCall(0.4, 0), 1e-15)
}
