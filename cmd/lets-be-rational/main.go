package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/contactkeval/lets-be-rational/internal/config"
	"github.com/contactkeval/lets-be-rational/internal/logger"
	"github.com/contactkeval/lets-be-rational/internal/metrics"
)

// app carries what every subcommand shares once the root has loaded the config.
type app struct {
	configPath string
	logLevel   string

	cfg     *config.Config
	metrics *metrics.Metrics
	closer  io.Closer
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "lets-be-rational",
		Short: "Black-76 prices and implied volatilities",
		Long: `lets-be-rational prices European options with the undiscounted Black-76
formula and inverts observed prices to implied volatility to machine precision
in at most two Householder steps.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
		Run: func(c *cobra.Command, args []string) {
			_ = c.Help()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (error, info, debug, trace)")

	root.AddCommand(
		newPriceCmd(),
		newIVCmd(a),
		newChainCmd(a),
		newBenchCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads the config, installs the logger and creates the metrics registry.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.closer = logger.Configure(cfg.Log)
	a.metrics = metrics.New()
	logger.Debugf("config: solver.max_iterations=%d chain.provider=%s", cfg.Solver.MaxIterations, cfg.Chain.Provider)
	return nil
}
