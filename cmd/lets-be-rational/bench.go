package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/contactkeval/lets-be-rational/internal/pricing"
)

// benchResult is one line of a sweep.
type benchResult struct {
	Calls         int     `csv:"calls"`
	Seconds       float64 `csv:"seconds"`
	NanosPerCall  float64 `csv:"ns_per_call"`
	MaxVolatility float64 `csv:"max_volatility"`
}

func newBenchCmd(a *app) *cobra.Command {
	var (
		n     int
		sweep bool
		out   string
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time the implied volatility solver",
		Long: `bench repeats ImpliedVolatility on a put with price 1, forward 100 and
T 0.5 while nudging the strike up from 100 by 1e-12 each call.

With --sweep it instead times out-of-the-money calls (price 0.001, forward
100, T 0.5) on strikes spread evenly over [145, 150], for ten chain sizes
from 1e2 to 1e6, and optionally writes the timings as CSV.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			iterations := a.cfg.Solver.MaxIterations
			w := cmd.OutOrStdout()

			if !sweep {
				r := benchLoop(n, iterations)
				_, err := fmt.Fprintf(w, "%d calls in %.6f seconds (%.1f ns/call)\n", r.Calls, r.Seconds, r.NanosPerCall)
				return err
			}

			var results []benchResult
			for _, size := range sweepSizes() {
				r := benchStrikes(size, iterations)
				fmt.Fprintf(w, "%d calls in %f seconds\n", r.Calls, r.Seconds)
				results = append(results, r)
			}
			if out == "" {
				return nil
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := gocsv.Marshal(results, f); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			return f.Close()
		},
	}
	cmd.Flags().IntVar(&n, "n", 10_000_000, "number of calls for the strike-nudging loop")
	cmd.Flags().BoolVar(&sweep, "sweep", false, "time a sweep of chain sizes instead")
	cmd.Flags().StringVarP(&out, "out", "o", "", "CSV file for the sweep timings")
	return cmd
}

// benchLoop is the strike-nudging put loop.
func benchLoop(n, iterations int) benchResult {
	K := 100.0
	worst := 0.0
	start := time.Now()
	for i := 0; i < n; i++ {
		K += 1e-12
		v, _ := pricing.ImpliedVolatilityWithLimitedIterations(1, 100, K, 0.5, pricing.Put, iterations)
		worst = math.Max(worst, v)
	}
	return newBenchResult(n, time.Since(start), worst)
}

// benchStrikes solves n out-of-the-money calls on strikes evenly spaced in [145, 150].
func benchStrikes(n, iterations int) benchResult {
	strikes := linspace(145, 150, n)
	worst := 0.0
	start := time.Now()
	for _, K := range strikes {
		v, _ := pricing.ImpliedVolatilityWithLimitedIterations(0.001, 100, K, 0.5, pricing.Call, iterations)
		worst = math.Max(worst, v)
	}
	return newBenchResult(n, time.Since(start), worst)
}

func newBenchResult(n int, d time.Duration, worst float64) benchResult {
	r := benchResult{Calls: n, Seconds: d.Seconds(), MaxVolatility: worst}
	if n > 0 {
		r.NanosPerCall = float64(d.Nanoseconds()) / float64(n)
	}
	return r
}

// sweepSizes returns ten sizes 10^d for d evenly spaced in [2, 6].
func sweepSizes() []int {
	exps := linspace(2, 6, 10)
	sizes := make([]int, len(exps))
	for i, d := range exps {
		sizes[i] = int(math.Pow(10, d))
	}
	return sizes
}

// linspace returns n evenly spaced values from start to end inclusive.
func linspace(start, end float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	step := (end - start) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
