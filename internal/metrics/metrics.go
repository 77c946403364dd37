// Package metrics exposes Prometheus counters for implied volatility
// evaluations on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for SolvesTotal.
const (
	OutcomeOK             = "ok"
	OutcomeBelowIntrinsic = "below_intrinsic"
	OutcomeAboveMaximum   = "above_maximum"
	OutcomeError          = "error"
)

// Metrics wraps a registry and the solver instruments.
type Metrics struct {
	registry *prometheus.Registry

	SolvesTotal      *prometheus.CounterVec   // by option type and outcome
	SolveDuration    *prometheus.HistogramVec // by option type
	ChainRunsTotal   *prometheus.CounterVec   // by provider and status
	ChainRunDuration prometheus.Histogram
}

// New builds a registry with Go runtime, process and solver metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.SolvesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lbr_implied_volatility_solves_total",
		Help: "Implied volatility evaluations by option type and outcome.",
	}, []string{"type", "outcome"})

	m.SolveDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lbr_implied_volatility_solve_seconds",
		Help:    "Wall time of a single implied volatility evaluation.",
		Buckets: prometheus.ExponentialBuckets(1e-7, 4, 10),
	}, []string{"type"})

	m.ChainRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lbr_chain_runs_total",
		Help: "Option chain evaluations by provider and status.",
	}, []string{"provider", "status"})

	m.ChainRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lbr_chain_run_seconds",
		Help:    "Wall time of a whole option chain evaluation.",
		Buckets: prometheus.DefBuckets,
	})

	reg.MustRegister(m.SolvesTotal, m.SolveDuration, m.ChainRunsTotal, m.ChainRunDuration)
	return m
}

// ObserveSolve records one evaluation.
func (m *Metrics) ObserveSolve(optionType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SolvesTotal.WithLabelValues(optionType, outcome).Inc()
	m.SolveDuration.WithLabelValues(optionType).Observe(d.Seconds())
}

// ObserveChainRun records one chain evaluation.
func (m *Metrics) ObserveChainRun(provider, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ChainRunsTotal.WithLabelValues(provider, status).Inc()
	m.ChainRunDuration.Observe(d.Seconds())
}

// Registry returns the underlying registry, e.g. for testutil.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
