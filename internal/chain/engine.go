// Package chain evaluates implied volatilities for a whole option chain.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"github.com/contactkeval/lets-be-rational/internal/data"
	"github.com/contactkeval/lets-be-rational/internal/logger"
	"github.com/contactkeval/lets-be-rational/internal/metrics"
	"github.com/contactkeval/lets-be-rational/internal/pricing"
)

// Row statuses.
const (
	StatusOK             = metrics.OutcomeOK
	StatusBelowIntrinsic = metrics.OutcomeBelowIntrinsic
	StatusAboveMaximum   = metrics.OutcomeAboveMaximum
	StatusInvalid        = "invalid"
)

type Engine struct {
	cfg     *Config
	prov    data.Provider
	metrics *metrics.Metrics
}

// Config struct
type Config struct {
	Underlying    string    `json:"underlying"`            // e.g. "SPY"
	AsOf          time.Time `json:"as_of,omitempty"`       // valuation date, zero = today
	Concurrency   int       `json:"concurrency,omitempty"` // parallel solves, defaults to 1
	MaxIterations int       `json:"max_iterations"`        // Householder steps after the initial guess
}

// Row is the outcome of one quote.
type Row struct {
	Symbol            string             `json:"symbol"                         csv:"symbol"`
	Type              pricing.OptionType `json:"type"                           csv:"type"`
	Strike            decimal.Decimal    `json:"strike"                         csv:"strike"`
	Forward           decimal.Decimal    `json:"forward"                        csv:"forward"`
	Price             decimal.Decimal    `json:"price"                          csv:"price"`
	Expiry            data.Date          `json:"expiry"                         csv:"expiry"`
	Time              float64            `json:"time"                           csv:"time"`                           // ACT/365 years to expiry
	ImpliedVolatility float64            `json:"implied_volatility"             csv:"implied_volatility"`             // 0 unless Status is ok
	Status            string             `json:"status"                         csv:"status"`                         // ok, below_intrinsic, above_maximum, invalid
	Bound             float64            `json:"bound,omitempty"                csv:"bound,omitempty"`                // violated intrinsic value or maximum
	Reference         float64            `json:"reference_volatility,omitempty" csv:"reference_volatility,omitempty"` // provider-supplied volatility
	AbsError          float64            `json:"abs_error,omitempty"            csv:"abs_error,omitempty"`            // |ImpliedVolatility - Reference|
	Message           string             `json:"message,omitempty"              csv:"message,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	Quotes         int       `json:"quotes"`
	Solved         int       `json:"solved"`
	BelowIntrinsic int       `json:"below_intrinsic"`
	AboveMaximum   int       `json:"above_maximum"`
	Invalid        int       `json:"invalid"`
	MaxAbsError    float64   `json:"max_abs_error"`  // over rows with a reference volatility
	ATMExpiry      data.Date `json:"atm_expiry"`     // nearest expiry
	ATMStrike      float64   `json:"atm_strike"`     // listed strike closest to the forward
	ATMVolatility  float64   `json:"atm_volatility"` // 0 if that strike did not solve
}

// Result of a chain run.
type Result struct {
	Underlying string        `json:"underlying"`
	Provider   string        `json:"provider"`
	AsOf       data.Date     `json:"as_of"`
	Iterations int           `json:"iterations"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Summary    Summary       `json:"summary"`
	Rows       []Row         `json:"rows"`
}

func NewEngine(cfg *Config, prov data.Provider, m *metrics.Metrics) *Engine {
	return &Engine{cfg: cfg, prov: prov, metrics: m}
}

// Run fetches the chain and solves every quote.
//
// Parameters:
//   - ctx: cancels the quote fetch and any solves not yet started
//
// Returns:
//   - *Result: one row per quote in provider order, plus a summary
//   - error: if quotes cannot be fetched or ctx is cancelled
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	cfg := e.cfg
	start := time.Now()

	asOf := cfg.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	workers := cfg.Concurrency
	if workers < 1 {
		workers = 1
	}

	quotes, err := e.prov.GetQuotes(ctx, cfg.Underlying, asOf)
	if err != nil {
		e.metrics.ObserveChainRun(e.prov.Name(), "error", time.Since(start))
		return nil, fmt.Errorf("fetching %s quotes from %s: %w", cfg.Underlying, e.prov.Name(), err)
	}
	logger.Infof("%d quotes for %s from %s provider", len(quotes), cfg.Underlying, e.prov.Name())

	rows := make([]Row, len(quotes))
	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i := range quotes {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows[i] = e.solve(quotes[i])
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		e.metrics.ObserveChainRun(e.prov.Name(), "cancelled", time.Since(start))
		return nil, err
	}

	res := &Result{
		Underlying: cfg.Underlying,
		Provider:   e.prov.Name(),
		AsOf:       data.NewDate(asOf),
		Iterations: cfg.MaxIterations,
		Summary:    summarise(rows),
		Rows:       rows,
	}
	res.Elapsed = time.Since(start)
	e.metrics.ObserveChainRun(e.prov.Name(), "ok", res.Elapsed)

	logger.Infof(
		"chain %s: %d solved, %d below intrinsic, %d above maximum, %d invalid in %s",
		res.Underlying,
		res.Summary.Solved,
		res.Summary.BelowIntrinsic,
		res.Summary.AboveMaximum,
		res.Summary.Invalid,
		res.Elapsed,
	)
	return res, nil
}

// solve inverts a single quote.
func (e *Engine) solve(q data.OptionQuote) Row {
	F := q.Forward.InexactFloat64()
	K := q.Strike.InexactFloat64()
	price := q.Price.InexactFloat64()
	T := q.YearFraction()

	row := Row{
		Symbol:    q.Symbol,
		Type:      q.Type,
		Strike:    q.Strike,
		Forward:   q.Forward,
		Price:     q.Price,
		Expiry:    q.Expiry,
		Time:      T,
		Reference: q.Volatility,
	}

	switch {
	case !(F > 0) || !(K > 0):
		row.Status = StatusInvalid
		row.Message = "forward and strike must be positive"
	case !(T > 0):
		row.Status = StatusInvalid
		row.Message = "option has expired"
	case q.Type != pricing.Call && q.Type != pricing.Put:
		row.Status = StatusInvalid
		row.Message = "unknown option type"
	}
	if row.Status != "" {
		logger.Debugf("%s skipped: %s", q.Symbol, row.Message)
		e.metrics.ObserveSolve(q.Type.String(), metrics.OutcomeError, 0)
		return row
	}

	begin := time.Now()
	iv, err := pricing.ImpliedVolatilityWithLimitedIterations(price, F, K, T, q.Type, e.cfg.MaxIterations)
	elapsed := time.Since(begin)

	var verr *pricing.VolatilityError
	switch {
	case err == nil:
		row.Status = StatusOK
		row.ImpliedVolatility = iv
		if q.Volatility > 0 {
			row.AbsError = math.Abs(iv - q.Volatility)
		}
		logger.Tracef("%s F=%g K=%g T=%.6f price=%g iv=%.16g", q.Symbol, F, K, T, price, iv)
	case errors.As(err, &verr):
		row.Status = verr.Kind.String()
		row.Bound = verr.Bound
		row.Message = err.Error()
		logger.Debugf("%s: %v", q.Symbol, err)
	default:
		row.Status = StatusInvalid
		row.Message = err.Error()
		logger.Errorf("%s: %v", q.Symbol, err)
	}

	outcome := row.Status
	if outcome == StatusInvalid {
		outcome = metrics.OutcomeError
	}
	e.metrics.ObserveSolve(q.Type.String(), outcome, elapsed)
	return row
}

// summarise counts statuses and picks the at-the-money volatility of the
// nearest expiry.
func summarise(rows []Row) Summary {
	var s Summary
	s.Quotes = len(rows)
	for _, r := range rows {
		switch r.Status {
		case StatusOK:
			s.Solved++
			s.MaxAbsError = math.Max(s.MaxAbsError, r.AbsError)
		case StatusBelowIntrinsic:
			s.BelowIntrinsic++
		case StatusAboveMaximum:
			s.AboveMaximum++
		default:
			s.Invalid++
		}
		if r.Time > 0 && (s.ATMExpiry.IsZero() || r.Expiry.Before(s.ATMExpiry.Time)) {
			s.ATMExpiry = r.Expiry
		}
	}
	if s.ATMExpiry.IsZero() {
		return s
	}

	var strikes []float64
	forward := 0.0
	for _, r := range rows {
		if r.Expiry.Equal(s.ATMExpiry.Time) {
			strikes = append(strikes, r.Strike.InexactFloat64())
			forward = r.Forward.InexactFloat64()
		}
	}
	sort.Float64s(strikes)
	s.ATMStrike = data.Closest(strikes, forward)

	for _, r := range rows {
		if r.Status == StatusOK && r.Expiry.Equal(s.ATMExpiry.Time) && r.Strike.InexactFloat64() == s.ATMStrike {
			s.ATMVolatility = r.ImpliedVolatility
			break
		}
	}
	return s
}
