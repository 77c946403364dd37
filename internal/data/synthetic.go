package data

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/lets-be-rational/internal/logger"
	"github.com/contactkeval/lets-be-rational/internal/pricing"
)

// syntheticTenors are the calendar-day expiries a synthetic chain is built on.
var syntheticTenors = [...]int{7, 30, 91, 182, 365, 730}

// synthDataProvider implements Data Provider generating synthetic data.
//
// Every quote is priced with Black at a known volatility, which is kept on the
// quote so a chain run can report how well the solver recovers it.
type synthDataProvider struct {
	seed      int64
	count     int
	secondary Provider
}

// NewSyntheticProvider returns a provider that produces count quotes per call,
// deterministically for a given seed.
func NewSyntheticProvider(seed int64, count int) Provider {
	if count <= 0 {
		count = 200
	}
	return &synthDataProvider{seed: seed, count: count}
}

func (synthDataProv *synthDataProvider) Name() string { return "synthetic" }

func (synthDataProv *synthDataProvider) Secondary() Provider {
	return synthDataProv.secondary
}

// GetQuotes generates a chain of out-of-the-money quotes around a random forward.
//
// Parameters:
//   - ctx: checked once before generation
//   - underlying: symbol stamped on every quote
//   - asOf: valuation date; zero means today
//
// Returns:
//   - []OptionQuote: count quotes carrying their reference volatility
//   - error: only if ctx is already done
func (synthDataProv *synthDataProvider) GetQuotes(ctx context.Context, underlying string, asOf time.Time) ([]OptionQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}
	day := NewDate(asOf)
	underlying = strings.ToUpper(underlying)

	rng := rand.New(rand.NewSource(synthDataProv.seed))
	forward := math.Round((50+450*rng.Float64())*100) / 100

	logger.Debugf("synthetic chain: %s forward=%.2f count=%d", underlying, forward, synthDataProv.count)

	out := make([]OptionQuote, 0, synthDataProv.count)
	for i := 0; i < synthDataProv.count; i++ {
		tenor := syntheticTenors[rng.Intn(len(syntheticTenors))]
		expiry := day.AddDate(0, 0, tenor)
		T := float64(tenor) / 365

		sigma := 0.05 + 0.75*rng.Float64()
		m := (2*rng.Float64() - 1) * sigma * math.Sqrt(T)
		strike := math.Round(forward*math.Exp(m)*2) / 2
		if strike <= 0 {
			strike = 0.5
		}

		// Out-of-the-money side only.
		q := pricing.Call
		if strike < forward {
			q = pricing.Put
		}
		price := pricing.Black(forward, strike, sigma, T, q)

		out = append(out, OptionQuote{
			Symbol:     OptionSymbolFromParts(underlying, expiry, q, strike),
			Underlying: underlying,
			Type:       q,
			Strike:     decimal.NewFromFloat(strike),
			Forward:    decimal.NewFromFloat(forward),
			Price:      decimal.NewFromFloat(price),
			Expiry:     Date{expiry},
			AsOf:       day,
			Volatility: sigma,
		})
	}

	logger.Tracef("synthetic chain generated %d quotes", len(out))
	return out, nil
}
