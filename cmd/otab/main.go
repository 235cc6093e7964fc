// Package main implements otab, the command-line front end for building and
// querying Optimality Theory tableaux.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// configPath is the otab.yaml location; empty means ./otab.yaml if present
	configPath string
	// logLevel overrides logging.level
	logLevel string
	// metricsFile overrides metrics.textfile
	metricsFile string
	// styled colors the report output
	styled bool
	// version information
	version = "dev"

	// env is set up before any subcommand runs and shut down by main
	env *environment
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	if env != nil {
		if serr := env.shutdown(ctx); serr != nil {
			fmt.Fprintln(os.Stderr, "Error:", serr)
			err = errors.Join(err, serr)
		}
	}
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "otab",
	Short: "Build and query finite-state Optimality Theory tableaux",
	Long: `otab compiles a grammar file (phoneme inventory, candidate generator and
ranked constraints) into a staged finite-state tableau, saves it, and looks
up winners for underlying forms.

The HFST command-line tools (hfst-regexp2fst, hfst-compose, hfst-lookup and
friends) must be on PATH or in engine.bin_dir.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		env, err = setup(cmd)
		return err
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "config file (default ./otab.yaml if present)")
	pf.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.BoolVar(&styled, "styled", false, "color the report output")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(watchCmd)
}
