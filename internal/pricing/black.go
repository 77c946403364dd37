// Package pricing implements the undiscounted Black-76 option price and the
// inversion of that price into an implied volatility.
//
// Prices are expressed in normalised coordinates internally:
//
//	x = ln(F/K)      log-moneyness
//	s = σ·√T         total standard deviation
//	β = price/√(F·K) normalised price
//
// In those coordinates a call is worth Φ(x/s+s/2)·e^(x/2) - Φ(x/s-s/2)·e^(-x/2)
// and only depends on two numbers, which is what makes the inversion tractable
// to full machine precision.
package pricing

import (
	"math"

	"github.com/contactkeval/lets-be-rational/internal/constants"
	"github.com/contactkeval/lets-be-rational/internal/normdist"
	"github.com/contactkeval/lets-be-rational/internal/specfun"
)

// Branch thresholds of NormalisedBlackCall.
const (
	asymptoticExpansionEta = -10.0
	smallTExpansionTau     = 2 * constants.SixteenthRootDBLEpsilon
	normCDFRegionFactor    = 0.85
)

// asymptoticExpansionCoefficients[k-1] holds the coefficients, in ascending
// powers of e = (t/h)², of the polynomial 2·Σⱼ C(2k+1, 2j+1)·eʲ that multiplies
// the k-th term of the large-|h| expansion of the normalised call.
var asymptoticExpansionCoefficients = func() [17][]float64 {
	var table [17][]float64
	for k := 1; k <= len(table); k++ {
		n := 2*k + 1
		row := make([]float64, k+1)
		// C(n, 2j+1) built incrementally from C(n, 1) = n.
		c := float64(n)
		for j := 0; j <= k; j++ {
			row[j] = 2 * c
			m := 2*j + 1
			if m+2 <= n {
				c = c * float64(n-m) * float64(n-m-1) / (float64(m+1) * float64(m+2))
			}
		}
		table[k-1] = row
	}
	return table
}()

// Black calculates the undiscounted Black-76 price of a European option on a
// forward.
//
// Parameters:
//   - F: forward price of the underlying
//   - K: strike price of the option
//   - sigma: volatility (annual, as a decimal)
//   - T: time to expiry in years
//   - q: Call or Put
//
// Returns:
//
//	The forward option price. In-the-money options are priced as intrinsic
//	value plus the out-of-the-money counterpart, and the result never drops
//	below intrinsic value.
func Black(F, K, sigma, T float64, q OptionType) float64 {
	intrinsic := math.Abs(math.Max(payoffMoneyness(F, K, q), 0))
	if q.Sign()*(F-K) > 0 {
		return intrinsic + Black(F, K, sigma, T, q.Opposite())
	}
	return math.Max(intrinsic, (math.Sqrt(F)*math.Sqrt(K))*NormalisedBlack(math.Log(F/K), sigma*math.Sqrt(T), q))
}

// payoffMoneyness returns K-F for puts and F-K for calls.
func payoffMoneyness(F, K float64, q OptionType) float64 {
	if q < 0 {
		return K - F
	}
	return F - K
}

// NormalisedBlack returns the normalised price β of a call or put with
// log-moneyness x and total standard deviation s.
func NormalisedBlack(x, s float64, q OptionType) float64 {
	if q < 0 {
		return NormalisedBlackCall(-x, s)
	}
	return NormalisedBlackCall(x, s)
}

// NormalisedBlackCall returns the normalised call price
//
//	b(x, s) = Φ(x/s + s/2)·e^(x/2) - Φ(x/s - s/2)·e^(-x/2)
//
// evaluated in one of four regions chosen to avoid cancellation:
//
//   - h = x/s far in the left tail with t = s/2 not too large: asymptotic expansion
//   - t small: Taylor expansion in t
//   - x + s²/2 > 0.85·s: the CDF difference above
//   - otherwise: the same difference written with erfcx
//
// In-the-money calls are computed as intrinsic value plus the
// out-of-the-money call at -x.
func NormalisedBlackCall(x, s float64) float64 {
	if x > 0 {
		return NormalisedIntrinsic(x, Call) + NormalisedBlackCall(-x, s)
	}
	ax := math.Abs(x)
	if s <= ax*constants.DenormalizationCutoff {
		return NormalisedIntrinsic(x, Call)
	}
	// Denominators are bounded away from zero in each region: x < 0 here, and
	// the asymptotic region requires x < -10·s.
	if x < s*asymptoticExpansionEta && 0.5*s*s+x < s*(smallTExpansionTau+asymptoticExpansionEta) {
		return asymptoticExpansionOfNormalisedBlackCall(x/s, 0.5*s)
	}
	if 0.5*s < smallTExpansionTau {
		return smallTExpansionOfNormalisedBlackCall(x/s, 0.5*s)
	}
	if x+0.5*s*s > s*normCDFRegionFactor {
		return normalisedBlackCallUsingNormCDF(x, s)
	}
	return normalisedBlackCallUsingErfcx(x/s, 0.5*s)
}

// asymptoticExpansionOfNormalisedBlackCall sums the large-|h| expansion of
// the normalised call to 17th order, for h < -10 and t < |h| - 10 + τ.
func asymptoticExpansionOfNormalisedBlackCall(h, t float64) float64 {
	e := (t / h) * (t / h)
	r := (h + t) * (h - t)
	q := (h / r) * (h / r)

	acc := 0.0
	for k := len(asymptoticExpansionCoefficients); k >= 1; k-- {
		coeffs := asymptoticExpansionCoefficients[k-1]
		p := 0.0
		for j := len(coeffs) - 1; j >= 0; j-- {
			p = p*e + coeffs[j]
		}
		if k%2 == 1 {
			p = -p
		}
		acc = float64(2*k-1) * q * (p + acc)
	}
	sum := 2 + acc

	b := constants.OneOverSqrtTwoPi * math.Exp(-0.5*(h*h+t*t)) * (t / r) * sum
	return math.Abs(math.Max(b, 0))
}

// smallTExpansionOfNormalisedBlackCall is the Taylor expansion of the
// normalised call in t = s/2 to 12th order, valid for t < 2·ε^(1/16).
func smallTExpansionOfNormalisedBlackCall(h, t float64) float64 {
	// a = 1 + h·Φ(h)/φ(h), written through erfcx to stay accurate for h ≪ 0.
	a := 1 + h*(0.5*constants.SqrtTwoPi)*specfun.Erfcx(-constants.OneOverSqrtTwo*h)
	w := t * t
	h2 := h * h
	expansion := 2 * t * (a + w*((-1+3*a+a*h2)/6+w*((-7+15*a+h2*(-1+10*a+a*h2))/120+
		w*((-57+105*a+h2*(-18+105*a+h2*(-1+21*a+a*h2)))/5040+
			w*((-561+945*a+h2*(-285+1260*a+h2*(-33+378*a+h2*(-1+36*a+a*h2))))/362880+
				w*((-6555+10395*a+h2*(-4680+17325*a+h2*(-840+6930*a+h2*(-52+990*a+h2*(-1+55*a+a*h2)))))/39916800+
					((-89055+135135*a+h2*(-82845+270270*a+h2*(-20370+135135*a+h2*(-1926+25740*a+h2*(-75+2145*a+h2*(-1+78*a+a*h2))))))*w)/6227020800.0))))))
	b := constants.OneOverSqrtTwoPi * math.Exp(-0.5*(h*h+t*t)) * expansion
	return math.Abs(math.Max(b, 0))
}

func normalisedBlackCallUsingNormCDF(x, s float64) float64 {
	h := x / s
	t := 0.5 * s
	bMax := math.Exp(0.5 * x)
	b := normdist.CDF(h+t)*bMax - normdist.CDF(h-t)/bMax
	return math.Abs(math.Max(b, 0))
}

func normalisedBlackCallUsingErfcx(h, t float64) float64 {
	b := 0.5 * math.Exp(-0.5*(h*h+t*t)) *
		(specfun.Erfcx(-constants.OneOverSqrtTwo*(h+t)) - specfun.Erfcx(-constants.OneOverSqrtTwo*(h-t)))
	return math.Abs(math.Max(b, 0))
}

// NormalisedIntrinsic returns the normalised intrinsic value
// max(q·(e^(x/2) - e^(-x/2)), 0).
//
// Near the money the difference of exponentials is replaced by its Taylor
// series 2·sinh(x/2) to avoid cancellation.
func NormalisedIntrinsic(x float64, q OptionType) float64 {
	if q.Sign()*x <= 0 {
		return 0
	}
	x2 := x * x
	if x2 < 98*constants.FourthRootDBLEpsilon {
		v := q.Sign() * x * (1 + x2*((1.0/24.0)+x2*((1.0/1920.0)+x2*((1.0/322560.0)+(1.0/92897280.0)*x2))))
		return math.Abs(math.Max(v, 0))
	}
	bMax := math.Exp(0.5 * x)
	oneOverBMax := 1 / bMax
	return math.Abs(math.Max(q.Sign()*(bMax-oneOverBMax), 0))
}

// NormalisedVega returns ∂β/∂s = φ(x/s + s/2), the vega of the normalised
// price with respect to the total standard deviation.
//
// At the money this is exp(-s²/8)/√(2π). Away from the money it vanishes as
// s → 0.
func NormalisedVega(x, s float64) float64 {
	ax := math.Abs(x)
	if ax <= 0 {
		return constants.OneOverSqrtTwoPi * math.Exp(-0.125*s*s)
	}
	if s <= 0 || s <= ax*constants.SqrtDBLMin {
		return 0
	}
	return constants.OneOverSqrtTwoPi * math.Exp(-0.5*(square(x/s)+square(0.5*s)))
}

func square(x float64) float64 { return x * x }
