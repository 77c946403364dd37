// Package specfun implements W. J. Cody's rational Chebyshev approximations
// of the error function and its complements (ACM TOMS Algorithm 715, CALERF).
//
// The approximations are accurate to roughly 1e-18 relative error before
// rounding and are shared by Erf, Erfc and Erfcx through a single evaluator.
package specfun

import "math"

// kind selects which function calerf evaluates.
type kind int

const (
	kindErf kind = iota
	kindErfc
	kindErfcx
)

// Machine-dependent constants for IEEE-754 binary64.
const (
	xinf   = 1.79e308
	xneg   = -26.628
	xsmall = 1.11e-16
	xbig   = 26.543
	xhuge  = 6.71e7
	xmax   = 2.53e307
)

const (
	sqrpi  = 0.56418958354775628695 // 1/sqrt(pi)
	thresh = 0.46875
)

// Coefficients for |x| <= 0.46875.
var (
	erfA = [5]float64{
		3.1611237438705656,
		113.864154151050156,
		377.485237685302021,
		3209.37758913846947,
		0.185777706184603153,
	}
	erfB = [4]float64{
		23.6012909523441209,
		244.024637934444173,
		1282.61652607737228,
		2844.23683343917062,
	}
)

// Coefficients for 0.46875 < |x| <= 4.
var (
	erfC = [9]float64{
		0.564188496988670089,
		8.88314979438837594,
		66.1191906371416295,
		298.635138197400131,
		881.95222124176909,
		1712.04761263407058,
		2051.07837782607147,
		1230.33935479799725,
		2.15311535474403846e-8,
	}
	erfD = [8]float64{
		15.7449261107098347,
		117.693950891312499,
		537.181101862009858,
		1621.38957456669019,
		3290.79923573345963,
		4362.61909014324716,
		3439.36767414372164,
		1230.33935480374942,
	}
)

// Coefficients for |x| > 4.
var (
	erfP = [6]float64{
		0.305326634961232344,
		0.360344899949804439,
		0.125781726111229246,
		0.0160837851487422766,
		6.58749161529837803e-4,
		0.0163153871373020978,
	}
	erfQ = [5]float64{
		2.56852019228982242,
		1.87295284992346047,
		0.527905102951428412,
		0.0605183413124413191,
		0.00233520497626869185,
	}
)

// Erf returns the error function of x.
func Erf(x float64) float64 { return calerf(x, kindErf) }

// Erfc returns the complementary error function 1 - erf(x), computed without
// cancellation for large positive x.
func Erfc(x float64) float64 { return calerf(x, kindErfc) }

// Erfcx returns the scaled complementary error function exp(x*x)*erfc(x).
//
// For x below -26.628 the true value overflows and 1.79e308 is returned.
// For large positive x the result decays like 1/(x*sqrt(pi)).
func Erfcx(x float64) float64 { return calerf(x, kindErfcx) }

// truncate16 rounds x toward zero onto the 1/16 grid. Splitting exp(-x*x) as
// exp(-t*t)*exp(-(x-t)(x+t)) with t on that grid keeps the exponent exact.
func truncate16(x float64) float64 {
	return math.Trunc(x*16) / 16
}

// expMinusSquare returns exp(-y*y) with the 1/16 grid split.
func expMinusSquare(y float64) float64 {
	ysq := truncate16(y)
	del := (y - ysq) * (y + ysq)
	return math.Exp(-ysq*ysq) * math.Exp(-del)
}

func calerf(x float64, k kind) float64 {
	y := math.Abs(x)

	if y <= thresh {
		ysq := 0.0
		if y > xsmall {
			ysq = y * y
		}
		xnum := erfA[4] * ysq
		xden := ysq
		for i := 0; i < 3; i++ {
			xnum = (xnum + erfA[i]) * ysq
			xden = (xden + erfB[i]) * ysq
		}
		result := x * (xnum + erfA[3]) / (xden + erfB[3])
		if k != kindErf {
			result = 1 - result
		}
		if k == kindErfcx {
			result *= math.Exp(ysq)
		}
		return result
	}

	var result float64
	if y <= 4 {
		xnum := erfC[8] * y
		xden := y
		for i := 0; i < 7; i++ {
			xnum = (xnum + erfC[i]) * y
			xden = (xden + erfD[i]) * y
		}
		result = (xnum + erfC[7]) / (xden + erfD[7])
		if k != kindErfcx {
			result *= expMinusSquare(y)
		}
		return fixup(x, k, result)
	}

	if y >= xbig {
		if k != kindErfcx || y >= xmax {
			return fixup(x, k, 0)
		}
		if y >= xhuge {
			return fixup(x, k, sqrpi/y)
		}
	}

	ysq := 1 / (y * y)
	xnum := erfP[5] * ysq
	xden := ysq
	for i := 0; i < 4; i++ {
		xnum = (xnum + erfP[i]) * ysq
		xden = (xden + erfQ[i]) * ysq
	}
	result = ysq * (xnum + erfP[4]) / (xden + erfQ[4])
	result = (sqrpi - result) / y
	if k != kindErfcx {
		result *= expMinusSquare(y)
	}
	return fixup(x, k, result)
}

// fixup maps the |x| > 0.46875 result, which was computed for |x|, back onto
// the sign of x for the requested function.
func fixup(x float64, k kind, result float64) float64 {
	switch k {
	case kindErf:
		result = (0.5 - result) + 0.5
		if x < 0 {
			result = -result
		}
	case kindErfc:
		if x < 0 {
			result = 2 - result
		}
	default:
		if x < 0 {
			if x < xneg {
				return xinf
			}
			ysq := truncate16(x)
			del := (x - ysq) * (x + ysq)
			y := math.Exp(ysq*ysq) * math.Exp(del)
			result = (y + y) - result
		}
	}
	return result
}
