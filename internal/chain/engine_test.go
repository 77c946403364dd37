package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/lets-be-rational/internal/data"
	"github.com/contactkeval/lets-be-rational/internal/metrics"
	"github.com/contactkeval/lets-be-rational/internal/pricing"
)

var asOf = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

type stubProvider struct {
	quotes []data.OptionQuote
	err    error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Secondary() data.Provider { return nil }

func (s *stubProvider) GetQuotes(context.Context, string, time.Time) ([]data.OptionQuote, error) {
	return s.quotes, s.err
}

func quote(symbol string, q pricing.OptionType, F, K, price float64, days int, ref float64) data.OptionQuote {
	return data.OptionQuote{
		Symbol:     symbol,
		Underlying: "TEST",
		Type:       q,
		Strike:     decimal.NewFromFloat(K),
		Forward:    decimal.NewFromFloat(F),
		Price:      decimal.NewFromFloat(price),
		Expiry:     data.Date{Time: asOf.AddDate(0, 0, days)},
		AsOf:       data.NewDate(asOf),
		Volatility: ref,
	}
}

func mixedChain() []data.OptionQuote {
	return []data.OptionQuote{
		quote("ATM", pricing.Call, 100, 100, pricing.Black(100, 100, 0.2, 1, pricing.Call), 365, 0.2),
		quote("CHEAP", pricing.Call, 100, 90, 5, 365, 0),
		quote("RICH", pricing.Put, 100, 110, 110, 365, 0),
		quote("EXPIRED", pricing.Call, 100, 100, 1, 0, 0),
		quote("OTM_PUT", pricing.Put, 100, 95, pricing.Black(100, 95, 0.25, 1, pricing.Put), 365, 0.25),
	}
}

func TestEngineRunStatuses(t *testing.T) {
	m := metrics.New()
	cfg := &Config{Underlying: "TEST", AsOf: asOf, Concurrency: 3, MaxIterations: pricing.DefaultIterations}
	res, err := NewEngine(cfg, &stubProvider{quotes: mixedChain()}, m).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Rows, 5)
	assert.Equal(t, "stub", res.Provider)
	assert.Equal(t, "2025-01-02", res.AsOf.String())
	assert.Equal(t, 2, res.Iterations)

	byName := map[string]Row{}
	for _, r := range res.Rows {
		byName[r.Symbol] = r
	}
	// provider order is kept
	assert.Equal(t, "ATM", res.Rows[0].Symbol)
	assert.Equal(t, "OTM_PUT", res.Rows[4].Symbol)

	assert.Equal(t, StatusOK, byName["ATM"].Status)
	assert.InEpsilon(t, 0.2, byName["ATM"].ImpliedVolatility, 1e-14)
	assert.Less(t, byName["ATM"].AbsError, 1e-14)
	assert.Equal(t, 1.0, byName["ATM"].Time)

	assert.Equal(t, StatusBelowIntrinsic, byName["CHEAP"].Status)
	assert.Equal(t, 10.0, byName["CHEAP"].Bound)
	assert.Zero(t, byName["CHEAP"].ImpliedVolatility)
	assert.Contains(t, byName["CHEAP"].Message, "below intrinsic")

	assert.Equal(t, StatusAboveMaximum, byName["RICH"].Status)
	assert.Equal(t, 110.0, byName["RICH"].Bound)

	assert.Equal(t, StatusInvalid, byName["EXPIRED"].Status)
	assert.Equal(t, "option has expired", byName["EXPIRED"].Message)

	assert.Equal(t, StatusOK, byName["OTM_PUT"].Status)
	assert.InEpsilon(t, 0.25, byName["OTM_PUT"].ImpliedVolatility, 1e-14)

	s := res.Summary
	assert.Equal(t, 5, s.Quotes)
	assert.Equal(t, 2, s.Solved)
	assert.Equal(t, 1, s.BelowIntrinsic)
	assert.Equal(t, 1, s.AboveMaximum)
	assert.Equal(t, 1, s.Invalid)
	assert.Less(t, s.MaxAbsError, 1e-14)
	assert.Equal(t, "2026-01-02", s.ATMExpiry.String())
	assert.Equal(t, 100.0, s.ATMStrike)
	assert.InEpsilon(t, 0.2, s.ATMVolatility, 1e-14)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues("call", metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues("put", metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues("call", metrics.OutcomeBelowIntrinsic)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues("put", metrics.OutcomeAboveMaximum)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues("call", metrics.OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChainRunsTotal.WithLabelValues("stub", "ok")))
}

func TestEngineRunSyntheticChain(t *testing.T) {
	cfg := &Config{Underlying: "SPY", AsOf: asOf, Concurrency: 8, MaxIterations: pricing.DefaultIterations}
	res, err := NewEngine(cfg, data.NewSyntheticProvider(11, 300), nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 300, res.Summary.Quotes)
	assert.Equal(t, 300, res.Summary.Solved)
	assert.Less(t, res.Summary.MaxAbsError, 1e-12)
	assert.Positive(t, res.Summary.ATMStrike)
	assert.Positive(t, res.Summary.ATMVolatility)
}

func TestEngineRunFewerIterationsIsLessAccurate(t *testing.T) {
	run := func(n int) float64 {
		cfg := &Config{Underlying: "SPY", AsOf: asOf, Concurrency: 4, MaxIterations: n}
		res, err := NewEngine(cfg, data.NewSyntheticProvider(5, 100), nil).Run(context.Background())
		require.NoError(t, err)
		return res.Summary.MaxAbsError
	}
	guess, refined := run(0), run(2)
	assert.Greater(t, guess, refined)
	assert.Less(t, guess, 1e-2)
}

func TestEngineRunProviderError(t *testing.T) {
	m := metrics.New()
	boom := errors.New("boom")
	_, err := NewEngine(&Config{Underlying: "TEST"}, &stubProvider{err: boom}, m).Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fetching TEST quotes from stub")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChainRunsTotal.WithLabelValues("stub", "error")))
}

func TestEngineRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(&Config{Underlying: "TEST", AsOf: asOf}, &stubProvider{quotes: mixedChain()}, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummariseEmpty(t *testing.T) {
	s := summarise(nil)
	assert.Zero(t, s.Quotes)
	assert.True(t, s.ATMExpiry.IsZero())
	assert.Zero(t, s.ATMStrike)
}
