package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/contactkeval/lets-be-rational/internal/logger"
	"github.com/contactkeval/lets-be-rational/internal/metrics"
	"github.com/contactkeval/lets-be-rational/internal/pricing"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST server",
		Long: `serve exposes
  /run      evaluates the configured option chain and returns the result
  /iv       implied volatility for price, forward, strike, time and type
  /price    Black-76 price for forward, strike, vol, time and type
  /health   liveness
  /metrics  Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (server.addr)")
	return cmd
}

// serve blocks until ctx is done, then shuts the server down.
func (a *app) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("starting REST server on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Infof("shutting down REST server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *app) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/run", func(w http.ResponseWriter, r *http.Request) {
		// runs the chain once with the loaded config
		logger.Infof("received /run request")
		res, err := a.runChain(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
	mux.HandleFunc("GET /iv", a.handleIV)
	mux.HandleFunc("GET /price", handlePrice)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Handle("GET /metrics", a.metrics.Handler())
	return mux
}

// ivResponse is the body of /iv.
type ivResponse struct {
	ImpliedVolatility float64 `json:"implied_volatility"`
	Status            string  `json:"status"`
	Bound             float64 `json:"bound,omitempty"`
	Sentinel          float64 `json:"sentinel,omitempty"`
	Iterations        int     `json:"iterations"`
}

func (a *app) handleIV(w http.ResponseWriter, r *http.Request) {
	p := queryParser{r: r}
	price := p.float("price")
	F, K, T := p.float("forward"), p.float("strike"), p.float("time")
	q := p.optionType()
	n := a.cfg.Solver.MaxIterations
	if r.URL.Query().Has("iterations") {
		n = p.int("iterations")
	}
	if p.err == nil {
		p.err = checkContract(F, K, T)
	}
	if p.err == nil && (n < 0 || n > 64) {
		p.err = errors.New("iterations must be between 0 and 64")
	}
	if p.err != nil {
		writeError(w, http.StatusBadRequest, p.err)
		return
	}

	start := time.Now()
	iv, err := pricing.ImpliedVolatilityWithLimitedIterations(price, F, K, T, q, n)
	elapsed := time.Since(start)

	resp := ivResponse{Iterations: n}
	var verr *pricing.VolatilityError
	switch {
	case err == nil:
		resp.ImpliedVolatility = iv
		resp.Status = metrics.OutcomeOK
	case errors.As(err, &verr):
		resp.Status = verr.Kind.String()
		resp.Bound = verr.Bound
		resp.Sentinel = verr.Value()
	default:
		a.metrics.ObserveSolve(q.String(), metrics.OutcomeError, elapsed)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.metrics.ObserveSolve(q.String(), resp.Status, elapsed)
	writeJSON(w, http.StatusOK, resp)
}

func handlePrice(w http.ResponseWriter, r *http.Request) {
	p := queryParser{r: r}
	F, K, T := p.float("forward"), p.float("strike"), p.float("time")
	sigma := p.float("vol")
	q := p.optionType()
	if p.err == nil {
		p.err = checkContract(F, K, T)
	}
	if p.err == nil && sigma < 0 {
		p.err = errors.New("vol must not be negative")
	}
	if p.err != nil {
		writeError(w, http.StatusBadRequest, p.err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"price": pricing.Black(F, K, sigma, T, q)})
}

func checkContract(F, K, T float64) error {
	if !(F > 0) || !(K > 0) {
		return errors.New("forward and strike must be positive")
	}
	if !(T > 0) {
		return errors.New("time must be positive")
	}
	return nil
}

// queryParser reads query parameters and keeps the first error.
type queryParser struct {
	r   *http.Request
	err error
}

func (p *queryParser) float(name string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.r.URL.Query().Get(name), 64)
	if err != nil {
		p.err = fmt.Errorf("query parameter %q: %w", name, err)
	}
	return v
}

func (p *queryParser) int(name string) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.r.URL.Query().Get(name))
	if err != nil {
		p.err = fmt.Errorf("query parameter %q: %w", name, err)
	}
	return v
}

func (p *queryParser) optionType() pricing.OptionType {
	if p.err != nil {
		return 0
	}
	s := p.r.URL.Query().Get("type")
	if s == "" {
		return pricing.Call
	}
	q, err := pricing.ParseOptionType(s)
	if err != nil {
		p.err = err
	}
	return q
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
