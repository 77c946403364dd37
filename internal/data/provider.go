package data

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/lets-be-rational/internal/pricing"
)

// DateLayout is the on-disk and on-wire date format of quotes.
const DateLayout = "2006-01-02"

// Provider supplies option quotes for one underlying.
type Provider interface {
	Name() string
	Secondary() Provider
	GetQuotes(ctx context.Context, underlying string, asOf time.Time) ([]OptionQuote, error)
}

// OptionQuote is one observed (or generated) option price together with the
// forward it should be inverted against.
type OptionQuote struct {
	Symbol     string             `json:"symbol"               csv:"symbol"`
	Underlying string             `json:"underlying"           csv:"underlying"`
	Type       pricing.OptionType `json:"type"                 csv:"type"`
	Strike     decimal.Decimal    `json:"strike"               csv:"strike"`
	Forward    decimal.Decimal    `json:"forward"              csv:"forward"`
	Price      decimal.Decimal    `json:"price"                csv:"price"`
	Expiry     Date               `json:"expiry"               csv:"expiry"`
	AsOf       Date               `json:"as_of"                csv:"as_of"`
	Volatility float64            `json:"volatility,omitempty" csv:"volatility,omitempty"` // reference vol when known, 0 otherwise
}

// YearFraction returns the ACT/365 time from AsOf to Expiry in years.
func (q OptionQuote) YearFraction() float64 {
	return q.Expiry.Sub(q.AsOf.Time).Hours() / 24 / 365
}

// Date is a calendar date that marshals as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to its UTC calendar date.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*d = Date{}
		return nil
	}
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalJSON shadows time.Time's RFC 3339 encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// NewProvider builds the provider chain named by kind.
//
// Parameters:
//   - kind: "synthetic", "csv" or "massive"
//   - opts: provider settings; only the fields relevant to kind are read
//
// Returns:
//   - Provider: the primary provider, with a synthetic secondary for csv
//   - error: if kind is unknown
func NewProvider(kind string, opts Options) (Provider, error) {
	switch strings.ToLower(kind) {
	case "synthetic", "":
		return NewSyntheticProvider(opts.Seed, opts.Count), nil
	case "csv":
		return NewLocalCSVProvider(opts.Input, NewSyntheticProvider(opts.Seed, opts.Count)), nil
	case "massive":
		return NewMassiveDataProvider(opts.Massive), nil
	}
	return nil, fmt.Errorf("unknown provider %q", kind)
}

// Options carries the settings NewProvider needs.
type Options struct {
	Seed    int64
	Count   int
	Input   string
	Massive MassiveOptions
}

// --------------------------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------------------------

// OptionSymbolFromParts: improved OCC-like formatter (best-effort)
func OptionSymbolFromParts(underlying string, expiryDate time.Time, optionType pricing.OptionType, strike float64) string {
	// OCC: <root><YYMMDD><C|P><strike*1000 padded to 8 digits>
	expDt := expiryDate.UTC().Format("060102")
	optType := "C"
	if optionType == pricing.Put {
		optType = "P"
	}
	strikeInt := int(math.Round(strike * 1000))
	strFmt := fmt.Sprintf("%08d", strikeInt)
	return fmt.Sprintf("O:%s%s%s%s", strings.ToUpper(underlying), expDt, optType, strFmt)
}

// Closest finds the closest float64 in a sorted slice to the target value using binary search (sort.Search).
func Closest(numList []float64, target float64) float64 {
	n := len(numList)
	if n == 0 {
		panic("empty list")
	}

	i := sort.Search(n, func(i int) bool {
		return numList[i] >= target
	})

	if i == 0 {
		return numList[0]
	}
	if i == n {
		return numList[n-1]
	}

	before := numList[i-1]
	after := numList[i]

	if math.Abs(before-target) < math.Abs(after-target) {
		return before
	}
	return after
}
