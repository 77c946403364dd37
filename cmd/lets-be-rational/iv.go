package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/contactkeval/lets-be-rational/internal/metrics"
	"github.com/contactkeval/lets-be-rational/internal/pricing"
)

func newIVCmd(a *app) *cobra.Command {
	var (
		opt        optionFlags
		price      float64
		iterations int
	)
	cmd := &cobra.Command{
		Use:   "iv",
		Short: "Implied volatility of an undiscounted Black-76 price",
		Long: `iv inverts an undiscounted option price to its Black-76 volatility.

A price below intrinsic value prints below_intrinsic and a price at or above
the forward (calls) or strike (puts) prints above_maximum, each followed by
the conventional sentinel volatility.`,
		Example: `  lets-be-rational iv --price 2.5 --forward 100 --strike 110 --time 0.5 --type call`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opt.validate()
			if err != nil {
				return err
			}
			n := iterations
			if n < 0 {
				n = a.cfg.Solver.MaxIterations
			}

			start := time.Now()
			iv, err := pricing.ImpliedVolatilityWithLimitedIterations(price, opt.forward, opt.strike, opt.time, q, n)
			elapsed := time.Since(start)

			out := cmd.OutOrStdout()
			var verr *pricing.VolatilityError
			switch {
			case err == nil:
				a.metrics.ObserveSolve(q.String(), metrics.OutcomeOK, elapsed)
				_, err = fmt.Fprintf(out, "%.17g\n", iv)
				return err
			case errors.As(err, &verr):
				a.metrics.ObserveSolve(q.String(), verr.Kind.String(), elapsed)
				_, err = fmt.Fprintf(out, "%s %g\n", verr.Kind, verr.Value())
				return err
			}
			return err
		},
	}
	opt.register(cmd)
	cmd.Flags().Float64VarP(&price, "price", "p", 0, "undiscounted option price")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", -1, "Householder steps after the initial guess (default solver.max_iterations)")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}
