package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/contactkeval/vol-surface/internal/config"
	"github.com/contactkeval/vol-surface/internal/data"
	"github.com/contactkeval/vol-surface/internal/logger"
	"github.com/contactkeval/vol-surface/internal/pricing"
	"github.com/contactkeval/vol-surface/internal/report"
	"github.com/contactkeval/vol-surface/internal/server"
	"github.com/contactkeval/vol-surface/internal/surface"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vol-surface",
		Short:         "Implied volatility surfaces from American option chains",
		Long:          `Prices American options on a trinomial lattice and backs out implied volatility for every quote of an option chain.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to a YAML or JSON config file")
	root.PersistentFlags().IntP("verbosity", "v", int(logger.Info), "log verbosity: 0 error, 1 info, 2 debug, 3 trace")

	root.AddCommand(newSurfaceCmd(), newPriceCmd(), newIVCmd(), newServeCmd())
	return root
}

// loadConfig reads --config when given, the environment, and then applies
// whichever flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.LoadEnv(); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	setString(flags, "ticker", &cfg.Ticker)
	setString(flags, "provider", &cfg.Provider)
	setString(flags, "fallback", &cfg.Fallback)
	setString(flags, "csv", &cfg.CSVPath)
	setString(flags, "out", &cfg.ReportDir)
	setFloat(flags, "band", &cfg.Band)
	setInt(flags, "steps", &cfg.Steps)
	setInt(flags, "workers", &cfg.Workers)
	setInt(flags, "verbosity", &cfg.Verbosity)
	for name, dst := range map[string]**float64{
		"spot":  &cfg.Spot,
		"yield": &cfg.DividendYield,
		"rate":  &cfg.RiskFreeRate,
	} {
		if flags.Changed(name) {
			v, _ := flags.GetFloat64(name)
			*dst = &v
		}
	}

	logger.SetVerbosity(cfg.Verbosity)
	return cfg, nil
}

func setString(flags *pflag.FlagSet, name string, dst *string) {
	if flags.Lookup(name) != nil && flags.Changed(name) {
		*dst, _ = flags.GetString(name)
	}
}

func setFloat(flags *pflag.FlagSet, name string, dst *float64) {
	if flags.Lookup(name) != nil && flags.Changed(name) {
		*dst, _ = flags.GetFloat64(name)
	}
}

func setInt(flags *pflag.FlagSet, name string, dst *int) {
	if flags.Lookup(name) != nil && flags.Changed(name) {
		*dst, _ = flags.GetInt(name)
	}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newSurfaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "surface",
		Short: "Build an implied volatility surface for a ticker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			prov, err := cfg.NewProvider()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			start := time.Now()
			chain, err := data.FetchChain(ctx, prov, cfg.Ticker)
			if err != nil {
				return err
			}
			cfg.Overrides.Apply(chain)

			s, err := surface.NewBuilder(cfg.Config).Build(ctx, chain)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.ReportDir, 0755); err != nil {
				return fmt.Errorf("creating report dir %s: %w", cfg.ReportDir, err)
			}
			jsonPath, err := report.WriteJSON(s, cfg.ReportDir)
			if err != nil {
				return err
			}
			csvPath, err := report.WriteCSV(s, cfg.ReportDir)
			if err != nil {
				return err
			}

			report.PrintSummary(cmd.OutOrStdout(), s)
			logger.Infof("finished in %v, wrote %s and %s", time.Since(start), jsonPath, csvPath)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringP("ticker", "t", "SPY", "underlying ticker")
	f.Float64P("band", "b", surface.DefaultBand, "moneyness band around spot, negative disables")
	f.StringP("provider", "p", "", "massive, calculator, csv or synthetic (default massive when MASSIVE_API_KEY is set)")
	f.String("fallback", "", "provider to use when the primary one fails")
	f.String("csv", "", "chain CSV for the csv provider")
	f.StringP("out", "o", "out", "report directory")
	f.Float64("spot", 0, "override the underlying price")
	f.Float64("yield", 0, "override the dividend yield")
	f.Float64("rate", 0, "override the risk-free rate")
	f.Int("steps", pricing.DefaultSteps, "lattice steps per quote")
	f.Int("workers", 0, "parallel quotes (default GOMAXPROCS)")
	return cmd
}

// contractFlags registers the flags shared by price and iv.
func contractFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("spot", 100, "underlying price")
	f.Float64("strike", 100, "strike price")
	f.Float64("rate", 0.05, "risk-free rate")
	f.Float64("yield", 0, "dividend yield")
	f.Float64("expiry", 1, "time to expiry in years")
	f.Int("steps", pricing.DefaultSteps, "lattice steps")
	f.String("kind", "call", "call or put")
}

// contractFromFlags reads the contract; steps comes from the loaded config,
// which already reflects --steps when it was given.
func contractFromFlags(cmd *cobra.Command, steps int) (pricing.Contract, error) {
	f := cmd.Flags()
	kindStr, _ := f.GetString("kind")
	kind, err := pricing.ParseOptionKind(kindStr)
	if err != nil {
		return pricing.Contract{}, err
	}
	c := pricing.Contract{Kind: kind}
	c.Spot, _ = f.GetFloat64("spot")
	c.Strike, _ = f.GetFloat64("strike")
	c.Rate, _ = f.GetFloat64("rate")
	c.DividendYield, _ = f.GetFloat64("yield")
	c.Expiry, _ = f.GetFloat64("expiry")
	c.Steps = steps
	return c, c.Validate()
}

func newPriceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price one American option on the lattice",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := contractFromFlags(cmd, cfg.Steps)
			if err != nil {
				return err
			}
			vol, _ := cmd.Flags().GetFloat64("vol")

			lat, err := pricing.LatticePrice(c, vol)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "lattice        %.4f\n", lat)
			if bs, err := pricing.BlackScholesMerton(c, vol); err == nil {
				fmt.Fprintf(out, "black-scholes  %.4f\n", bs)
			}
			if vega, err := pricing.LatticeVega(c, vol); err == nil {
				fmt.Fprintf(out, "vega           %.4f\n", vega)
			}
			return nil
		},
	}
	contractFlags(cmd)
	cmd.Flags().Float64("vol", 0.2, "annualized volatility")
	return cmd
}

func newIVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iv",
		Short: "Solve the implied volatility of one option price",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := contractFromFlags(cmd, cfg.Steps)
			if err != nil {
				return err
			}
			price, _ := cmd.Flags().GetFloat64("price")

			res, err := cfg.Solver().Solve(c, price)
			if err != nil {
				return fmt.Errorf("%s after %d iterations: %w", res.Status, res.Iterations, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "implied vol %.4f (%d iterations)\n", res.Vol, res.Iterations)
			return nil
		},
	}
	contractFlags(cmd)
	cmd.Flags().Float64("price", 0, "observed option price")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			prov, err := cfg.NewProvider()
			if err != nil {
				return err
			}
			addr, _ := cmd.Flags().GetString("addr")

			ctx, cancel := signalContext(cmd)
			defer cancel()
			return server.New(prov, cfg.Config, cfg.Overrides).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().StringP("provider", "p", "", "massive, calculator, csv or synthetic")
	cmd.Flags().String("csv", "", "chain CSV for the csv provider")
	return cmd
}
