package pricing

import (
	"math"

	"github.com/contactkeval/lets-be-rational/internal/constants"
	"github.com/contactkeval/lets-be-rational/internal/normdist"
	"github.com/contactkeval/lets-be-rational/internal/rationalcubic"
)

// DefaultIterations is the number of Householder steps taken after the
// initial guess by ImpliedVolatility. Two steps reach machine precision
// everywhere in the domain.
const DefaultIterations = 2

// ImpliedVolatility returns the Black-76 volatility that reproduces price
// for an option on forward F with strike K and expiry T.
//
// Parameters:
//   - price: undiscounted option price
//   - F: forward price of the underlying
//   - K: strike price of the option
//   - T: time to expiry in years
//   - q: Call or Put
//
// Returns:
//
//	The implied volatility, or a *VolatilityError when price is below
//	intrinsic value or not below the maximum attainable price (F for calls,
//	K for puts). A price exactly at intrinsic value yields zero.
func ImpliedVolatility(price, F, K, T float64, q OptionType) (float64, error) {
	return ImpliedVolatilityWithLimitedIterations(price, F, K, T, q, DefaultIterations)
}

// ImpliedVolatilityWithLimitedIterations is ImpliedVolatility with an explicit
// number of refinement steps N. N = 0 returns the transformed rational guess
// itself, N = 1 is already accurate to about 1e-8 relative.
func ImpliedVolatilityWithLimitedIterations(price, F, K, T float64, q OptionType, N int) (float64, error) {
	intrinsic := math.Abs(math.Max(payoffMoneyness(F, K, q), 0))
	if price < intrinsic {
		return 0, belowIntrinsic(price, intrinsic)
	}
	maxPrice := F
	if q < 0 {
		maxPrice = K
	}
	if price >= maxPrice {
		return 0, aboveMaximum(price, maxPrice)
	}
	x := math.Log(F / K)
	// Map in-the-money options onto their out-of-the-money counterpart.
	if q.Sign()*x > 0 {
		price = math.Abs(math.Max(price-intrinsic, 0))
		q = q.Opposite()
	}
	s, err := uncheckedNormalisedImpliedVolatility(price/(math.Sqrt(F)*math.Sqrt(K)), x, q, N)
	if err != nil {
		return 0, err
	}
	return s / math.Sqrt(T), nil
}

// NormalisedImpliedVolatility returns the total standard deviation s = σ√T
// that reproduces the normalised price beta at log-moneyness x.
func NormalisedImpliedVolatility(beta, x float64, q OptionType) (float64, error) {
	return NormalisedImpliedVolatilityWithLimitedIterations(beta, x, q, DefaultIterations)
}

// NormalisedImpliedVolatilityWithLimitedIterations is NormalisedImpliedVolatility
// with an explicit number of refinement steps N.
func NormalisedImpliedVolatilityWithLimitedIterations(beta, x float64, q OptionType, N int) (float64, error) {
	intrinsic := 0.0
	timeValue := beta
	if q.Sign()*x > 0 {
		intrinsic = NormalisedIntrinsic(x, q)
		timeValue -= intrinsic
		q = q.Opposite()
	}
	if timeValue < 0 {
		return 0, belowIntrinsic(beta, intrinsic)
	}
	return uncheckedNormalisedImpliedVolatility(timeValue, x, q, N)
}

// uncheckedNormalisedImpliedVolatility assumes beta is at least the
// normalised intrinsic value.
//
// The initial guess splits the call price curve b(s) at three points: the
// inflexion point sc = √|2x| and the points sl, sh where the tangent at sc
// meets zero and bMax. Each of the four resulting segments is approximated by
// a rational cubic, on the outer two after transforming b so the interpolant
// follows the curve's asymptotics.
func uncheckedNormalisedImpliedVolatility(beta, x float64, q OptionType, N int) (float64, error) {
	if q.Sign()*x > 0 {
		beta = math.Abs(math.Max(beta-NormalisedIntrinsic(x, q), 0))
		q = q.Opposite()
	}
	// Puts are handled as calls at -x by put-call symmetry of β.
	if q < 0 {
		x = -x
	}
	if beta <= 0 {
		return 0, nil
	}
	if beta < constants.DenormalizationCutoff {
		return 0, nil
	}
	bMax := math.Exp(0.5 * x)
	if beta >= bMax {
		return 0, aboveMaximum(beta, bMax)
	}

	sLeft := constants.DBLMin
	sRight := constants.DBLMax

	sc := math.Sqrt(math.Abs(2 * x))
	bc := NormalisedBlackCall(x, sc)
	vc := NormalisedVega(x, sc)

	if beta < bc {
		sl := sc - bc/vc
		bl := NormalisedBlackCall(x, sl)
		if beta < bl {
			// Lowest segment: interpolate the transformed price f(b) and invert.
			fLowerMapL, dfLowerMapL, d2fLowerMapL := computeFLowerMapAndFirstTwoDerivatives(x, sl)
			rLL := rationalcubic.ConvexControlParameterToFitSecondDerivativeAtRightSide(
				0, bl, 0, fLowerMapL, 1, dfLowerMapL, d2fLowerMapL, true)
			f := rationalcubic.Interpolate(beta, 0, bl, 0, fLowerMapL, 1, dfLowerMapL, rLL)
			if !(f > 0) {
				// The interpolant can be negative near zero; fall back to a
				// quadratic through the same end points.
				t := beta / bl
				f = (fLowerMapL*t + bl*(1-t)) * t
			}
			s := inverseFLowerMap(x, f)
			sRight = sl
			return householder(x, beta, s, sLeft, sRight, N, lowerSegmentStep(x, beta)), nil
		}
		// Lower middle segment: interpolate s(b) directly.
		vl := NormalisedVega(x, sl)
		rLM := rationalcubic.ConvexControlParameterToFitSecondDerivativeAtRightSide(
			bl, bc, sl, sc, 1/vl, 1/vc, 0, false)
		s := rationalcubic.Interpolate(beta, bl, bc, sl, sc, 1/vl, 1/vc, rLM)
		return householder(x, beta, s, sl, sc, N, middleSegmentStep(x, beta)), nil
	}

	sh := sc
	if vc > constants.DBLMin {
		sh = sc + (bMax-bc)/vc
	}
	bh := NormalisedBlackCall(x, sh)
	if beta <= bh {
		// Upper middle segment.
		vh := NormalisedVega(x, sh)
		rHM := rationalcubic.ConvexControlParameterToFitSecondDerivativeAtLeftSide(
			bc, bh, sc, sh, 1/vc, 1/vh, 0, false)
		s := rationalcubic.Interpolate(beta, bc, bh, sc, sh, 1/vc, 1/vh, rHM)
		return householder(x, beta, s, sc, sh, N, middleSegmentStep(x, beta)), nil
	}

	// Highest segment: interpolate f(b) = Φ(-s/2) towards b = bMax and invert.
	f := -constants.DBLMax
	fUpperMapH, dfUpperMapH, d2fUpperMapH := computeFUpperMapAndFirstTwoDerivatives(x, sh)
	if d2fUpperMapH > -constants.SqrtDBLMax && d2fUpperMapH < constants.SqrtDBLMax {
		rHH := rationalcubic.ConvexControlParameterToFitSecondDerivativeAtLeftSide(
			bh, bMax, fUpperMapH, 0, dfUpperMapH, -0.5, d2fUpperMapH, true)
		f = rationalcubic.Interpolate(beta, bh, bMax, fUpperMapH, 0, dfUpperMapH, -0.5, rHH)
	}
	if f <= 0 {
		h := bMax - bh
		t := (beta - bh) / h
		f = (fUpperMapH*(1-t) + 0.5*h*t) * (1 - t)
	}
	s := inverseFUpperMap(f)
	sLeft = sh
	if beta > 0.5*bMax {
		return householder(x, beta, s, sLeft, sRight, N, upperSegmentStep(x, beta, bMax)), nil
	}
	return householder(x, beta, s, sLeft, sRight, N, middleSegmentStep(x, beta)), nil
}

// householderStep returns the next volatility increment given the current s,
// the normalised call price b and vega bp there, and the current bracket.
type householderStep func(s, b, bp, sLeft, sRight float64) float64

// householder refines s for at most n iterations on the call price curve at
// log-moneyness x. The bracket [sLeft, sRight] shrinks with every evaluation
// and the iteration falls back to bisection once it has changed direction
// three times or stepped outside the bracket.
func householder(x, beta, s, sLeft, sRight float64, n int, step householderStep) float64 {
	ds := -constants.DBLMax
	dsPrevious := 0.0
	directionReversals := 0
	for i := 0; i < n && math.Abs(ds) > constants.DBLEpsilon*s; i++ {
		if ds*dsPrevious < 0 {
			directionReversals++
		}
		if i > 0 && (directionReversals == 3 || !(s > sLeft && s < sRight)) {
			s = 0.5 * (sLeft + sRight)
			if sRight-sLeft <= constants.DBLEpsilon*s {
				break
			}
			directionReversals = 0
			ds = 0
		}
		dsPrevious = ds

		b := NormalisedBlackCall(x, s)
		bp := NormalisedVega(x, s)
		if b > beta && s < sRight {
			sRight = s
		} else if b < beta && s > sLeft {
			sLeft = s
		}

		ds = step(s, b, bp, sLeft, sRight)
		if !(ds > -0.5*s) {
			ds = -0.5 * s
		}
		s += ds
	}
	return s
}

// householderFactor turns a Newton step into a third-order Householder step
// given the ratios b''/b' (halley) and b'''/b' (hh3) of the objective.
func householderFactor(newton, halley, hh3 float64) float64 {
	return (1 + 0.5*halley*newton) / (1 + newton*(halley+hh3*newton/6))
}

// lowerSegmentStep iterates on 1/ln(b) - 1/ln(beta), which is close to linear
// in s where b is exponentially small.
func lowerSegmentStep(x, beta float64) householderStep {
	lnBeta := math.Log(beta)
	return func(s, b, bp, sLeft, sRight float64) float64 {
		if b <= 0 || bp <= 0 {
			return 0.5*(sLeft+sRight) - s
		}
		lnB := math.Log(b)
		bpob := bp / b
		h := x / s
		bHalley := h*h/s - s/4
		newton := (lnBeta - lnB) * lnB / lnBeta / bpob
		halley := bHalley - bpob*(1+2/lnB)
		bHH3 := bHalley*bHalley - 3*square(h/s) - 0.25
		hh3 := bHH3 + 2*square(bpob)*(1+3/lnB*(1+1/lnB)) - 3*bHalley*bpob*(1+2/lnB)
		return newton * householderFactor(newton, halley, hh3)
	}
}

// middleSegmentStep iterates on b - beta directly.
func middleSegmentStep(x, beta float64) householderStep {
	return func(s, b, bp, sLeft, sRight float64) float64 {
		newton := (beta - b) / bp
		halley := square(x/s)/s - s/4
		hh3 := halley*halley - 3*square(x/(s*s)) - 0.25
		return newton * householderFactor(newton, halley, hh3)
	}
}

// upperSegmentStep iterates on ln((bMax-beta)/(bMax-b)), which stays well
// conditioned as b approaches bMax.
func upperSegmentStep(x, beta, bMax float64) householderStep {
	return func(s, b, bp, sLeft, sRight float64) float64 {
		if b >= bMax || bp <= constants.DBLMin {
			return 0.5*(sLeft+sRight) - s
		}
		bMaxMinusB := bMax - b
		g := math.Log((bMax - beta) / bMaxMinusB)
		gp := bp / bMaxMinusB
		bHalley := square(x/s)/s - s/4
		bHH3 := bHalley*bHalley - 3*square(x/(s*s)) - 0.25
		newton := -g / gp
		halley := bHalley + gp
		hh3 := bHH3 + gp*(2*gp+3*bHalley)
		return newton * householderFactor(newton, halley, hh3)
	}
}

// computeFLowerMapAndFirstTwoDerivatives evaluates the lower map
//
//	f(s) = 2π/√27 · |x| · Φ(-|x|/(√3·s))³
//
// and its first two derivatives with respect to b(s).
func computeFLowerMapAndFirstTwoDerivatives(x, s float64) (f, fp, fpp float64) {
	ax := math.Abs(x)
	z := constants.SqrtOneOverThree * ax / s
	y := z * z
	s2 := s * s
	Phi := normdist.CDF(-z)
	phi := normdist.PDF(z)
	fpp = constants.PiOverSix * y / (s2 * s) * Phi *
		(8*constants.SqrtThree*s*ax + (3*s2*(s2-8)-8*x*x)*Phi/phi) *
		math.Exp(2*y+0.25*s2)
	if isBelowHorizon(s) {
		fp = 1
		f = 0
		return f, fp, fpp
	}
	Phi2 := Phi * Phi
	fp = constants.TwoPi * y * Phi2 * math.Exp(y+0.125*s*s)
	if isBelowHorizon(x) {
		f = 0
	} else {
		f = constants.TwoPiOverSqrtTwentySeven * ax * (Phi2 * Phi)
	}
	return f, fp, fpp
}

func inverseFLowerMap(x, f float64) float64 {
	if isBelowHorizon(f) {
		return 0
	}
	return math.Abs(x / (constants.SqrtThree *
		normdist.InverseCDF(math.Pow(f/(constants.TwoPiOverSqrtTwentySeven*math.Abs(x)), 1.0/3.0))))
}

// computeFUpperMapAndFirstTwoDerivatives evaluates the upper map
// f(s) = Φ(-s/2) and its first two derivatives with respect to b(s).
func computeFUpperMapAndFirstTwoDerivatives(x, s float64) (f, fp, fpp float64) {
	f = normdist.CDF(-0.5 * s)
	if isBelowHorizon(x) {
		return f, -0.5, 0
	}
	w := square(x / s)
	fp = -0.5 * math.Exp(0.5*w)
	fpp = constants.SqrtPiOverTwo * math.Exp(w+0.125*s*s) * w / s
	return f, fp, fpp
}

func inverseFUpperMap(f float64) float64 {
	return -2 * normdist.InverseCDF(f)
}

func isBelowHorizon(x float64) bool {
	return math.Abs(x) < constants.DBLMin
}
