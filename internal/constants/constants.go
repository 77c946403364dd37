// Package constants holds the machine thresholds and mathematical constants
// shared by the special functions, the Black pricer and the implied
// volatility solver.
//
// All values are untyped or float64 constants. Nothing here is mutable.
package constants

import "math"

// Machine limits of IEEE-754 binary64.
const (
	DBLEpsilon = 2.2204460492503131e-16
	DBLMin     = 2.2250738585072014e-308
	DBLMax     = math.MaxFloat64
)

// Powers of the machine epsilon used as branch thresholds.
const (
	SqrtDBLEpsilon          = 1.4901161193847656e-08
	FourthRootDBLEpsilon    = 0.0001220703125
	EighthRootDBLEpsilon    = 0.011048543456039806
	SixteenthRootDBLEpsilon = 0.10511205190671433
	SqrtDBLMin              = 1.4916681462400413e-154
	SqrtDBLMax              = 1.3407807929942596e+154
)

// DenormalizationCutoff is the normalised volatility below which a price is
// treated as pure intrinsic value. Zero disables the cutoff.
const DenormalizationCutoff = 0.0

// Mathematical constants.
const (
	Pi                       = 3.141592653589793238462643383279502884197169399375
	TwoPi                    = 6.283185307179586476925286766559005768394338798750
	SqrtTwoPi                = 2.506628274631000502415765284811045253006986740610
	OneOverSqrtTwoPi         = 0.3989422804014326779399460599343818684758586311649
	OneOverSqrtTwo           = 0.7071067811865475244008443621048490392848359376887
	SqrtPiOverTwo            = 1.253314137315500251207882642405522626503493370305
	SqrtThree                = 1.732050807568877293527446341505872366942805253810
	SqrtOneOverThree         = 0.577350269189625764509148780501957455647601751270
	TwoPiOverSqrtTwentySeven = 1.209199576156145233729385505094770488189377498728
	PiOverSix                = 0.523598775598298873077107230546583814032861566563
)

// Volatility values used to signal a price outside the attainable range.
// They are reported through pricing.VolatilityError and never returned as a
// plain volatility.
const (
	VolatilityValueToSignalPriceIsBelowIntrinsic = -DBLMax
	VolatilityValueToSignalPriceIsAboveMaximum   = DBLMax
)
