package pricing

import (
	"errors"
	"fmt"

	"github.com/contactkeval/lets-be-rational/internal/constants"
)

// ViolationKind tells which side of the attainable price range was breached.
type ViolationKind int

const (
	BelowIntrinsic ViolationKind = iota + 1
	AboveMaximum
)

func (k ViolationKind) String() string {
	switch k {
	case BelowIntrinsic:
		return "below_intrinsic"
	case AboveMaximum:
		return "above_maximum"
	}
	return "unknown"
}

// Sentinel errors for errors.Is checks.
var (
	ErrBelowIntrinsic = errors.New("price is below intrinsic value")
	ErrAboveMaximum   = errors.New("price is at or above the maximum attainable value")
)

// VolatilityError reports a price for which no implied volatility exists.
//
// Price and Bound are in the units of the call that raised the error: money
// for ImpliedVolatility, normalised for NormalisedImpliedVolatility.
type VolatilityError struct {
	Kind  ViolationKind
	Price float64
	Bound float64
}

func (e *VolatilityError) Error() string {
	switch e.Kind {
	case BelowIntrinsic:
		return fmt.Sprintf("implied volatility: price %g below intrinsic %g", e.Price, e.Bound)
	case AboveMaximum:
		return fmt.Sprintf("implied volatility: price %g not below maximum %g", e.Price, e.Bound)
	}
	return "implied volatility: invalid price"
}

// Unwrap exposes the matching sentinel error.
func (e *VolatilityError) Unwrap() error {
	switch e.Kind {
	case BelowIntrinsic:
		return ErrBelowIntrinsic
	case AboveMaximum:
		return ErrAboveMaximum
	}
	return nil
}

// Value returns the conventional sentinel volatility for the violation:
// -MaxFloat64 below intrinsic, +MaxFloat64 above the maximum.
func (e *VolatilityError) Value() float64 {
	if e.Kind == AboveMaximum {
		return constants.VolatilityValueToSignalPriceIsAboveMaximum
	}
	return constants.VolatilityValueToSignalPriceIsBelowIntrinsic
}

func belowIntrinsic(price, bound float64) error {
	return &VolatilityError{Kind: BelowIntrinsic, Price: price, Bound: bound}
}

func aboveMaximum(price, bound float64) error {
	return &VolatilityError{Kind: AboveMaximum, Price: price, Bound: bound}
}
