// Package data provides market data provider implementations.
//
// This file contains a Massive-backed Provider implementation that retrieves
// option chain snapshots via the Massive (formerly Polygon) HTTP API.
//
// Design notes:
//   - Uses resty instead of the official Massive SDK
//   - Supports pagination through next_url
//   - Retries rate-limited (429) and server-side (5xx) failures; a 429
//     without Retry-After waits for the next minute boundary
//   - Logging is verbose at Debug/Trace levels for diagnostics
package data

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/contactkeval/lets-be-rational/internal/logger"
	"github.com/contactkeval/lets-be-rational/internal/pricing"
)

// DefaultMassiveBaseURL is the production API root.
const DefaultMassiveBaseURL = "https://api.massive.com"

// MassiveOptions configures the Massive provider.
type MassiveOptions struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	Retries      int
	RetryWait    time.Duration // first backoff step
	RetryMaxWait time.Duration // caps every wait, including the minute-boundary one
	Limit        int           // page size, at most 250
}

// massiveDataProvider implements the Provider interface using Massive APIs.
type massiveDataProvider struct {
	// client carries base URL, auth, timeout and retry policy.
	client *resty.Client

	// limit is the page size of snapshot requests.
	limit int

	// secondary is an optional fallback provider.
	secondary Provider
}

// massiveSnapshot represents a single option contract snapshot
// returned by Massive's option chain snapshot endpoint.
type massiveSnapshot struct {
	Day struct {
		Close float64 `json:"close"`
	} `json:"day"`
	Details struct {
		ContractType   string  `json:"contract_type"`
		ExerciseStyle  string  `json:"exercise_style"`
		ExpirationDate string  `json:"expiration_date"`
		StrikePrice    float64 `json:"strike_price"`
		Ticker         string  `json:"ticker"`
	} `json:"details"`
	ImpliedVolatility float64 `json:"implied_volatility"`
	LastQuote         struct {
		Ask      float64 `json:"ask"`
		Bid      float64 `json:"bid"`
		Midpoint float64 `json:"midpoint"`
	} `json:"last_quote"`
	LastTrade struct {
		Price float64 `json:"price"`
	} `json:"last_trade"`
	UnderlyingAsset struct {
		Price  float64 `json:"price"`
		Ticker string  `json:"ticker"`
	} `json:"underlying_asset"`
}

// massiveSnapshotResp models the paginated response
// returned by Massive's option chain snapshot API.
type massiveSnapshotResp struct {
	Results   []massiveSnapshot `json:"results"`
	Status    string            `json:"status"`
	RequestID string            `json:"request_id"`
	NextURL   string            `json:"next_url"`
}

// massiveErrorResp is the body Massive sends with 4xx/5xx responses.
type massiveErrorResp struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	Message   string `json:"message"`
	Error     string `json:"error"`
}

// NewMassiveDataProvider constructs a Massive-backed data provider.
//
// It initializes a resty client with:
//   - bearer authentication
//   - the request timeout
//   - retries on transport errors, 429 and 5xx responses
//
// Parameters:
//   - opts: connection and retry settings; zero values get defaults
//
// Returns:
//   - *massiveDataProvider: initialized provider instance
func NewMassiveDataProvider(opts MassiveOptions) *massiveDataProvider {
	logger.Infof("initializing Massive data provider")

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultMassiveBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}
	if opts.RetryMaxWait <= 0 {
		opts.RetryMaxWait = time.Minute
	}
	if opts.Limit <= 0 || opts.Limit > 250 {
		opts.Limit = 250
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "lets-be-rational/1.0").
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMaxWait).
		SetRetryAfter(massiveRetryAfter).
		AddRetryCondition(massiveShouldRetry)
	if opts.APIKey != "" {
		client.SetAuthToken(opts.APIKey)
	}

	return &massiveDataProvider{client: client, limit: opts.Limit}
}

func (massiveDataProv *massiveDataProvider) Name() string { return "massive" }

// Secondary returns the configured secondary Provider, if any.
func (massiveDataProv *massiveDataProvider) Secondary() Provider {
	return massiveDataProv.secondary
}

// GetQuotes retrieves the option chain snapshot of underlying.
//
// The snapshot is live, so asOf only stamps the quotes and drops contracts
// that expire on or before it. The forward is taken as the underlying price
// reported with each contract.
//
// Parameters:
//   - ctx: cancels in-flight requests and retries
//   - underlying: underlying ticker symbol
//   - asOf: valuation date; zero means today
//
// Returns:
//   - []OptionQuote: usable quotes across all pages
//   - error: if a request fails after retries or a page cannot be decoded
func (massiveDataProv *massiveDataProvider) GetQuotes(ctx context.Context, underlying string, asOf time.Time) ([]OptionQuote, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	day := NewDate(asOf)
	underlying = strings.ToUpper(underlying)

	logger.Debugf("snapshot request: %s as of %s", underlying, day)

	out := []OptionQuote{}
	skipped := 0

	var page massiveSnapshotResp
	resp, err := massiveDataProv.client.R().
		SetContext(ctx).
		SetPathParam("underlying", underlying).
		SetQueryParam("limit", strconv.Itoa(massiveDataProv.limit)).
		SetResult(&page).
		SetError(&massiveErrorResp{}).
		Get("/v3/snapshot/options/{underlying}")

	for {
		if err := massiveCheck(resp, err); err != nil {
			return nil, err
		}
		logger.Tracef("received %d snapshots", len(page.Results))

		for _, s := range page.Results {
			q, ok := s.quote(underlying, day)
			if !ok {
				skipped++
				continue
			}
			out = append(out, q)
		}

		if page.NextURL == "" {
			break
		}
		next := page.NextURL
		page = massiveSnapshotResp{}
		logger.Debugf("snapshot next page: %s", next)
		resp, err = massiveDataProv.client.R().
			SetContext(ctx).
			SetResult(&page).
			SetError(&massiveErrorResp{}).
			Get(next)
	}

	logger.Infof("massive snapshot %s: %d quotes, %d skipped", underlying, len(out), skipped)
	if len(out) == 0 && massiveDataProv.secondary != nil {
		logger.Tracef("delegating to secondary provider")
		return massiveDataProv.secondary.GetQuotes(ctx, underlying, asOf)
	}
	return out, nil
}

// quote converts a snapshot into an OptionQuote. It reports false for
// contracts without a usable price, forward or expiry.
func (s massiveSnapshot) quote(underlying string, asOf Date) (OptionQuote, bool) {
	q, err := pricing.ParseOptionType(s.Details.ContractType)
	if err != nil {
		return OptionQuote{}, false
	}
	expiry, err := ParseDate(s.Details.ExpirationDate)
	if err != nil || !expiry.After(asOf.Time) {
		return OptionQuote{}, false
	}
	price := s.price()
	if price <= 0 || s.UnderlyingAsset.Price <= 0 || s.Details.StrikePrice <= 0 {
		return OptionQuote{}, false
	}

	symbol := s.Details.Ticker
	if symbol == "" {
		symbol = OptionSymbolFromParts(underlying, expiry.Time, q, s.Details.StrikePrice)
	}
	return OptionQuote{
		Symbol:     symbol,
		Underlying: underlying,
		Type:       q,
		Strike:     decimal.NewFromFloat(s.Details.StrikePrice),
		Forward:    decimal.NewFromFloat(s.UnderlyingAsset.Price),
		Price:      decimal.NewFromFloat(price),
		Expiry:     expiry,
		AsOf:       asOf,
		Volatility: s.ImpliedVolatility,
	}, true
}

// price prefers the quote midpoint, then the last trade, then the day close.
func (s massiveSnapshot) price() float64 {
	switch {
	case s.LastQuote.Midpoint > 0:
		return s.LastQuote.Midpoint
	case s.LastQuote.Bid > 0 && s.LastQuote.Ask > 0:
		return (s.LastQuote.Bid + s.LastQuote.Ask) / 2
	case s.LastTrade.Price > 0:
		return s.LastTrade.Price
	}
	return s.Day.Close
}

// massiveCheck turns a transport error or an error status into an error.
func massiveCheck(resp *resty.Response, err error) error {
	if err != nil {
		logger.Errorf("massive request failed: %v", err)
		return fmt.Errorf("massive api request failed: %w", err)
	}
	if resp.IsError() {
		msg := ""
		if e, ok := resp.Error().(*massiveErrorResp); ok && e != nil {
			msg = e.Message
			if msg == "" {
				msg = e.Error
			}
		}
		logger.Errorf("massive snapshot API error status=%d message=%s", resp.StatusCode(), msg)
		return fmt.Errorf("massive returned status %d: %s", resp.StatusCode(), msg)
	}
	return nil
}

// massiveShouldRetry retries per-minute rate limits and server errors.
func massiveShouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
}

// massiveRetryAfter honours Retry-After on a 429 and otherwise sleeps until
// the next minute boundary. Other statuses use the client's backoff.
func massiveRetryAfter(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
	if resp == nil || resp.StatusCode() != http.StatusTooManyRequests {
		return 0, nil
	}
	if v := resp.Header().Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second, nil
		}
	}
	now := time.Now()
	sleepDuration := time.Until(now.Truncate(time.Minute).Add(time.Minute))
	logger.Infof("rate limit hit, sleeping for %s", sleepDuration)
	return sleepDuration, nil
}
