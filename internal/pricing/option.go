package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// OptionType is the sign q of the payoff max(q·(F-K), 0).
type OptionType int

const (
	Put  OptionType = -1
	Call OptionType = 1
)

// ErrInvalidOptionType is returned by ParseOptionType for unknown names.
var ErrInvalidOptionType = errors.New("invalid option type")

// Sign returns +1 for calls and -1 for puts.
func (q OptionType) Sign() float64 {
	if q < 0 {
		return -1
	}
	return 1
}

// Opposite returns the other side of the put-call pair.
func (q OptionType) Opposite() OptionType {
	if q < 0 {
		return Call
	}
	return Put
}

func (q OptionType) String() string {
	if q < 0 {
		return "put"
	}
	return "call"
}

// ParseOptionType accepts "call", "c", "put" and "p" in any case.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrInvalidOptionType)
}

// MarshalText lets OptionType round-trip through JSON and CSV as "call"/"put".
func (q OptionType) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText parses the names accepted by ParseOptionType.
func (q *OptionType) UnmarshalText(b []byte) error {
	v, err := ParseOptionType(string(b))
	if err != nil {
		return err
	}
	*q = v
	return nil
}
