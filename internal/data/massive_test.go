package data

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/lets-be-rational/internal/pricing"
)

var tradeDate = time.Date(2025, 1, 2, 15, 30, 0, 0, time.UTC)

const snapshotPage1 = `{
	"status": "OK",
	"request_id": "r1",
	"results": [
		{
			"details": {"contract_type": "call", "expiration_date": "2025-01-17", "strike_price": 600, "ticker": "O:SPY250117C00600000"},
			"implied_volatility": 0.12,
			"last_quote": {"ask": 4.3, "bid": 4.2, "midpoint": 4.25},
			"underlying_asset": {"price": 581.39, "ticker": "SPY"}
		},
		{
			"details": {"contract_type": "put", "expiration_date": "2025-01-17", "strike_price": 560, "ticker": "O:SPY250117P00560000"},
			"last_quote": {"ask": 3.2, "bid": 3.0},
			"underlying_asset": {"price": 581.39, "ticker": "SPY"}
		}
	],
	"next_url": "%s/v3/snapshot/options/SPY?cursor=page2"
}`

const snapshotPage2 = `{
	"status": "OK",
	"request_id": "r2",
	"results": [
		{
			"details": {"contract_type": "call", "expiration_date": "2025-02-21", "strike_price": 620, "ticker": "O:SPY250221C00620000"},
			"last_trade": {"price": 2.5},
			"underlying_asset": {"price": 581.39, "ticker": "SPY"}
		},
		{
			"details": {"contract_type": "call", "expiration_date": "2025-02-21", "strike_price": 900, "ticker": "O:SPY250221C00900000"},
			"underlying_asset": {"price": 581.39, "ticker": "SPY"}
		},
		{
			"details": {"contract_type": "put", "expiration_date": "2024-12-20", "strike_price": 500, "ticker": "O:SPY241220P00500000"},
			"day": {"close": 0.01},
			"underlying_asset": {"price": 581.39, "ticker": "SPY"}
		}
	]
}`

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func newTestMassive(url string, retries int) *massiveDataProvider {
	return NewMassiveDataProvider(MassiveOptions{
		BaseURL:      url,
		APIKey:       "test",
		Timeout:      5 * time.Second,
		Retries:      retries,
		RetryWait:    time.Millisecond,
		RetryMaxWait: 10 * time.Millisecond,
	})
}

func TestMassiveProvider_Pagination(t *testing.T) {
	var callCount atomic.Int32

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		assert.Equal(t, "/v3/snapshot/options/SPY", r.URL.Path)
		assert.Equal(t, "Bearer test", r.Header.Get("Authorization"))

		if r.URL.Query().Get("cursor") == "" {
			assert.Equal(t, "250", r.URL.Query().Get("limit"))
			writeJSON(w, http.StatusOK, fmt.Sprintf(snapshotPage1, srv.URL))
			return
		}
		writeJSON(w, http.StatusOK, snapshotPage2)
	}))
	defer srv.Close()

	quotes, err := newTestMassive(srv.URL, 0).GetQuotes(context.Background(), "spy", tradeDate)
	require.NoError(t, err)
	assert.Equal(t, int32(2), callCount.Load())

	// the 900 strike has no price and the December put has expired
	require.Len(t, quotes, 3)

	assert.Equal(t, "O:SPY250117C00600000", quotes[0].Symbol)
	assert.Equal(t, pricing.Call, quotes[0].Type)
	assert.Equal(t, "4.25", quotes[0].Price.String())
	assert.Equal(t, "581.39", quotes[0].Forward.String())
	assert.Equal(t, 0.12, quotes[0].Volatility)
	assert.Equal(t, "2025-01-02", quotes[0].AsOf.String())

	assert.Equal(t, pricing.Put, quotes[1].Type)
	assert.Equal(t, "3.1", quotes[1].Price.String(), "bid/ask average")

	assert.Equal(t, "2.5", quotes[2].Price.String(), "last trade")
	assert.Equal(t, "2025-02-21", quotes[2].Expiry.String())
}

func TestMassiveProvider_RateLimitRetry(t *testing.T) {
	var callCount atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callCount.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			writeJSON(w, http.StatusTooManyRequests, `{"status":"ERROR","message":"rate limited"}`)
			return
		}
		writeJSON(w, http.StatusOK, snapshotPage2)
	}))
	defer srv.Close()

	quotes, err := newTestMassive(srv.URL, 2).GetQuotes(context.Background(), "SPY", tradeDate)
	require.NoError(t, err)
	assert.Equal(t, int32(2), callCount.Load())
	assert.Len(t, quotes, 1)
}

func TestMassiveProvider_HTTPError(t *testing.T) {
	// fake server returning 403
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"status":"NOT_AUTHORIZED","message":"not entitled"}`)
	}))
	defer srv.Close()

	_, err := newTestMassive(srv.URL, 3).GetQuotes(context.Background(), "SPY", tradeDate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "not entitled")
}

func TestMassiveProvider_ServerErrorExhaustsRetries(t *testing.T) {
	var callCount atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		writeJSON(w, http.StatusInternalServerError, `{"message":"internal error"}`)
	}))
	defer srv.Close()

	_, err := newTestMassive(srv.URL, 2).GetQuotes(context.Background(), "SPY", tradeDate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, int32(3), callCount.Load())
}

func TestMassiveProvider_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, snapshotPage2)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestMassive(srv.URL, 0).GetQuotes(ctx, "SPY", tradeDate)
	require.Error(t, err)
}

func TestMassiveSnapshotPrice(t *testing.T) {
	var s massiveSnapshot
	assert.Equal(t, 0.0, s.price())

	s.Day.Close = 1.5
	assert.Equal(t, 1.5, s.price())

	s.LastTrade.Price = 1.75
	assert.Equal(t, 1.75, s.price())

	s.LastQuote.Bid, s.LastQuote.Ask = 1.6, 1.8
	assert.InDelta(t, 1.7, s.price(), 1e-15)

	s.LastQuote.Midpoint = 1.71
	assert.Equal(t, 1.71, s.price())
}
