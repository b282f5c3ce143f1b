//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-salesfeat.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesfeat/internal/config"
	"github.com/pgEdge/pgedge-salesfeat/internal/datagen/profiles"
	"github.com/pgEdge/pgedge-salesfeat/internal/features"
	"github.com/pgEdge/pgedge-salesfeat/internal/logging"
	"github.com/pgEdge/pgedge-salesfeat/internal/store"
	"github.com/pgEdge/pgedge-salesfeat/pkg/version"
)

var (
	// Global flags
	cfgFile    string
	envFile    string
	storeKind  string
	connection string
	inputDir   string
	outputDir  string
	logLevel   string
	logFormat  string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-salesfeat",
		Short: "Demand forecasting feature generator for retail sales",
		Long: `pgedge-salesfeat reads product, brand, store and daily sales tables,
computes moving average and lag features at the product-store, brand-store
and store levels, and ranks product-store groups by forecast error (WMAPE).

Tables are read from and written to a directory of CSV files or a
PostgreSQL database. The 'generate' command creates a synthetic dataset
to try the pipeline on.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-salesfeat.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "",
		"environment file (default: ./.env if present)")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "",
		"table store: "+strings.Join(store.Kinds(), ", "))
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string (postgres store)")
	rootCmd.PersistentFlags().StringVar(&inputDir, "input-dir", "",
		"directory holding the input CSV files (csv store)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "",
		"directory receiving the output files")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log output format (pretty, json)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(levelsCmd)
	rootCmd.AddCommand(profilesCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile, envFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if storeKind != "" {
		cfg.Store = storeKind
	}
	if connection != "" {
		cfg.Connection = connection
	}
	if inputDir != "" {
		cfg.InputDir = inputDir
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return nil
}

// newLogger builds the logger handed to every component of a command.
func newLogger(cmd *cobra.Command) zerolog.Logger {
	return logging.NewWithWriter(cfg.Logging(), cmd.ErrOrStderr())
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Info())
	},
}

var levelsWindow int

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "List hierarchy levels and the feature columns they produce",
	Long: `List the aggregation levels features are computed at. Each level sums
product sales over its keys and date, then adds a moving average and a lag
over the preceding window of days within each key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if levelsWindow < 1 {
			return fmt.Errorf("window must be at least 1")
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LEVEL\tKEYS\tSALES\tMOVING AVERAGE\tLAG")
		for _, lvl := range features.Levels() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				lvl.Name, strings.Join(lvl.Keys, ", "), lvl.Sales,
				lvl.MAColumn(levelsWindow), lvl.LagColumn(levelsWindow))
		}
		return w.Flush()
	},
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List available demand profiles",
	Long: `List the demand profiles used by 'generate' to shape synthetic daily
sales quantities.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Available demand profiles:")
		fmt.Fprintln(out)
		for _, name := range profiles.List() {
			p, err := profiles.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %-13s - %s\n", p.Name(), p.Description())
		}
		return nil
	},
}

func init() {
	levelsCmd.Flags().IntVar(&levelsWindow, "window", features.DefaultWindow,
		"window length used to name the feature columns")
}
