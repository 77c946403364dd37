package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/contactkeval/lets-be-rational/internal/chain"
	"github.com/contactkeval/lets-be-rational/internal/config"
	"github.com/contactkeval/lets-be-rational/internal/data"
	"github.com/contactkeval/lets-be-rational/internal/logger"
	"github.com/contactkeval/lets-be-rational/internal/report"
)

func newChainCmd(a *app) *cobra.Command {
	var (
		underlying  string
		provider    string
		input       string
		asOf        string
		concurrency int
		reportDir   string
	)
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Implied volatilities for a whole option chain",
		Long: `chain fetches the option chain of an underlying from the configured provider
(synthetic, csv or massive), solves every quote concurrently and writes
ivs.json and ivs.csv into the report directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &a.cfg.Chain
			flags := cmd.Flags()
			if flags.Changed("underlying") {
				c.Underlying = underlying
			}
			if flags.Changed("provider") {
				c.Provider = provider
			}
			if flags.Changed("input") {
				c.Input = input
			}
			if flags.Changed("as-of") {
				c.AsOf = asOf
			}
			if flags.Changed("concurrency") {
				c.Concurrency = concurrency
			}
			if flags.Changed("report-dir") {
				c.ReportDir = reportDir
			}
			if err := config.Validate(a.cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			start := time.Now()
			res, err := a.runChain(ctx)
			if err != nil {
				return err
			}
			if c.ReportDir != "" {
				if err := report.Write(res, c.ReportDir); err != nil {
					return err
				}
			}

			s := res.Summary
			fmt.Fprintf(cmd.OutOrStdout(),
				"%s: %d quotes, %d solved, %d below intrinsic, %d above maximum, %d invalid, ATM %s K=%g vol=%.6f\n",
				res.Underlying, s.Quotes, s.Solved, s.BelowIntrinsic, s.AboveMaximum, s.Invalid,
				s.ATMExpiry, s.ATMStrike, s.ATMVolatility)
			logger.Infof("[done] finished in %v, wrote %d rows to %s", time.Since(start), len(res.Rows), c.ReportDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&underlying, "underlying", "u", "", "underlying symbol (chain.underlying)")
	cmd.Flags().StringVar(&provider, "provider", "", "synthetic, csv or massive (chain.provider)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "quote file for the csv provider (chain.input)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "valuation date YYYY-MM-DD (chain.as_of)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "parallel solves (chain.concurrency)")
	cmd.Flags().StringVarP(&reportDir, "report-dir", "o", "", "report directory (chain.report_dir)")
	return cmd
}

// runChain builds the provider and engine from the loaded config and runs them.
func (a *app) runChain(ctx context.Context) (*chain.Result, error) {
	c := a.cfg.Chain

	var asOf time.Time
	if c.AsOf != "" {
		d, err := data.ParseDate(c.AsOf)
		if err != nil {
			return nil, fmt.Errorf("chain.as_of: %w", err)
		}
		asOf = d.Time
	}

	prov, err := data.NewProvider(c.Provider, data.Options{
		Seed:  c.Seed,
		Count: c.Count,
		Input: c.Input,
		Massive: data.MassiveOptions{
			BaseURL: a.cfg.Massive.BaseURL,
			APIKey:  a.cfg.Massive.APIKey,
			Timeout: a.cfg.Massive.Timeout,
			Retries: a.cfg.Massive.Retries,
		},
	})
	if err != nil {
		return nil, err
	}

	engine := chain.NewEngine(&chain.Config{
		Underlying:    c.Underlying,
		AsOf:          asOf,
		Concurrency:   c.Concurrency,
		MaxIterations: a.cfg.Solver.MaxIterations,
	}, prov, a.metrics)
	return engine.Run(ctx)
}
