// Package normdist provides the standard normal density, cumulative
// distribution and its inverse, accurate to full double precision in both
// tails.
package normdist

import (
	"math"

	"github.com/contactkeval/lets-be-rational/internal/constants"
	"github.com/contactkeval/lets-be-rational/internal/specfun"
)

// asymptoticExpansionThreshold is the argument at or below which CDF switches
// from erfc to the asymptotic series.
const asymptoticExpansionThreshold = -10.0

// PDF returns the standard normal probability density exp(-x²/2)/√(2π).
func PDF(x float64) float64 {
	return constants.OneOverSqrtTwoPi * math.Exp(-0.5*x*x)
}

// CDF returns Φ(z), the probability that a standard normal variate is at most z.
//
// For z > -10 the value is 0.5·erfc(-z/√2). Further out the asymptotic series
//
//	Φ(z) = -φ(z)/z · (1 - 1/z² + 3/z⁴ - 15/z⁶ + ...)
//
// is summed until the terms stop shrinking or fall below the sum's last bit.
func CDF(z float64) float64 {
	if z <= asymptoticExpansionThreshold {
		sum := 1.0
		if z >= -1/constants.SqrtDBLEpsilon {
			zsqr := z * z
			g := 1.0
			a := constants.DBLMax
			for i := 1; ; i++ {
				lasta := a
				x := float64(4*i-3) / zsqr
				y := x * (float64(4*i-1) / zsqr)
				a = g * (x - y)
				sum -= a
				g *= y
				a = math.Abs(a)
				if !(lasta > a && a >= math.Abs(sum*constants.DBLEpsilon)) {
					break
				}
			}
		}
		return -PDF(z) * sum / z
	}
	return 0.5 * specfun.Erfc(-z*constants.OneOverSqrtTwo)
}

// AS241 coefficients (Wichura, 1988), central region |u-0.5| <= 0.425.
var (
	centralNumerator = [8]float64{
		3.3871328727963666080e0,
		1.3314166789178437745e+2,
		1.9715909503065514427e+3,
		1.3731693765509461125e+4,
		4.5921953931549871457e+4,
		6.7265770927008700853e+4,
		3.3430575583588128105e+4,
		2.5090809287301226727e+3,
	}
	centralDenominator = [8]float64{
		1.0,
		4.2313330701600911252e+1,
		6.8718700749205790830e+2,
		5.3941960214247511077e+3,
		2.1213794301586595867e+4,
		3.9307895800092710610e+4,
		2.8729085735721942674e+4,
		5.2264952788528545610e+3,
	}
)

// Intermediate tail, r = sqrt(-log(min(u, 1-u))) < 5.
var (
	nearNumerator = [8]float64{
		1.42343711074968357734e0,
		4.63033784615654529590e0,
		5.76949722146069140550e0,
		3.64784832476320460504e0,
		1.27045825245236838258e0,
		2.41780725177450611770e-1,
		2.27238449892691845833e-2,
		7.74545014278341407640e-4,
	}
	nearDenominator = [8]float64{
		1.0,
		2.05319162663775882187e0,
		1.67638483018380384940e0,
		6.89767334985100004550e-1,
		1.48103976427480074590e-1,
		1.51986665636164571966e-2,
		5.47593808499534494600e-4,
		1.05075007164441684324e-9,
	}
)

// Far tail, r >= 5.
var (
	farNumerator = [8]float64{
		6.65790464350110377720e0,
		5.46378491116411436990e0,
		1.78482653991729133580e0,
		2.96560571828504891230e-1,
		2.65321895265761230930e-2,
		1.24266094738807843860e-3,
		2.71155556874348757815e-5,
		2.01033439929228813265e-7,
	}
	farDenominator = [8]float64{
		1.0,
		5.99832206555887937690e-1,
		1.36929880922735805310e-1,
		1.48753612908506148525e-2,
		7.86869131145613259100e-4,
		1.84631831751005468180e-5,
		1.42151175831644588870e-7,
		2.04426310338993978564e-15,
	}
)

const (
	splitCentral = 0.425
	splitTail    = 5.0
	centralConst = 0.180625
	nearConst    = 1.6
)

func horner(c *[8]float64, r float64) float64 {
	acc := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		acc = acc*r + c[i]
	}
	return acc
}

// InverseCDF returns Φ⁻¹(u) using Wichura's AS241 (PPND16), accurate to about
// 1e-16 relative error.
//
// Out-of-range inputs do not panic: u <= 0 yields log(u) and u >= 1 yields
// log(1-u), so the boundaries come back as -Inf and values outside [0,1] as NaN.
func InverseCDF(u float64) float64 {
	if u <= 0 {
		return math.Log(u)
	}
	if u >= 1 {
		return math.Log(1 - u)
	}

	q := u - 0.5
	if math.Abs(q) <= splitCentral {
		r := centralConst - q*q
		return q * horner(&centralNumerator, r) / horner(&centralDenominator, r)
	}

	r := u
	if q >= 0 {
		r = 1 - u
	}
	r = math.Sqrt(-math.Log(r))

	var ret float64
	if r < splitTail {
		r -= nearConst
		ret = horner(&nearNumerator, r) / horner(&nearDenominator, r)
	} else {
		r -= splitTail
		ret = horner(&farNumerator, r) / horner(&farDenominator, r)
	}
	if q < 0 {
		return -ret
	}
	return ret
}
