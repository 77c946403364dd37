package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contactkeval/lets-be-rational/internal/pricing"
)

// optionFlags are the contract inputs shared by price and iv.
type optionFlags struct {
	forward    float64
	strike     float64
	time       float64
	optionType string
}

func (f *optionFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64VarP(&f.forward, "forward", "F", 0, "forward price of the underlying")
	cmd.Flags().Float64VarP(&f.strike, "strike", "K", 0, "strike price")
	cmd.Flags().Float64VarP(&f.time, "time", "T", 0, "time to expiry in years")
	cmd.Flags().StringVarP(&f.optionType, "type", "q", "call", "call or put")
	_ = cmd.MarkFlagRequired("forward")
	_ = cmd.MarkFlagRequired("strike")
	_ = cmd.MarkFlagRequired("time")
}

// validate checks the inputs and parses the option type.
func (f *optionFlags) validate() (pricing.OptionType, error) {
	q, err := pricing.ParseOptionType(f.optionType)
	if err != nil {
		return 0, err
	}
	if !(f.forward > 0) || !(f.strike > 0) {
		return 0, errors.New("forward and strike must be positive")
	}
	if !(f.time > 0) {
		return 0, errors.New("time to expiry must be positive")
	}
	return q, nil
}

func newPriceCmd() *cobra.Command {
	var (
		opt   optionFlags
		sigma float64
	)
	cmd := &cobra.Command{
		Use:     "price",
		Short:   "Undiscounted Black-76 price",
		Example: `  lets-be-rational price --forward 100 --strike 110 --vol 0.2 --time 0.5 --type call`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opt.validate()
			if err != nil {
				return err
			}
			if sigma < 0 {
				return errors.New("volatility must not be negative")
			}
			price := pricing.Black(opt.forward, opt.strike, sigma, opt.time, q)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.17g\n", price)
			return err
		},
	}
	opt.register(cmd)
	cmd.Flags().Float64VarP(&sigma, "vol", "s", 0, "volatility")
	_ = cmd.MarkFlagRequired("vol")
	return cmd
}
