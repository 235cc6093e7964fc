package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/otgrammar/internal/report"
	"github.com/fyrsmithlabs/otgrammar/internal/tableau"
)

var (
	traceN          int
	traceVerbose    bool
	traceTracedOnly bool
)

// traceCmd shows where candidates are eliminated
var traceCmd = &cobra.Command{
	Use:   "trace TABLEAU INPUT [CANDIDATE...]",
	Short: "Show which constraint eliminates each candidate",
	Long: `Trace follows the candidates for INPUT through every constraint, listing
the fatalities and survivors of each stage. The listed CANDIDATEs are
reported as traced wherever they appear.

Examples:
  # Where does "pat" lose its coda?
  otab trace grammars/hawaiian pat pa pata

  # Only show the traced candidates, keeping alignment markers
  otab trace --traced-only --verbose grammars/hawaiian pat pa`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTrace,
}

func init() {
	f := traceCmd.Flags()
	f.IntVarP(&traceN, "results", "n", 0, "candidates listed per stage (default: tableau.results)")
	f.BoolVarP(&traceVerbose, "verbose", "v", false, "keep alignment markers in listed candidates (default: tableau.verbose)")
	f.BoolVar(&traceTracedOnly, "traced-only", false, "list only the traced candidates")
}

func runTrace(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, err := env.engine()
	if err != nil {
		return err
	}
	defer eng.Close()

	t, err := env.openTableau(ctx, eng, args[0])
	if err != nil {
		return err
	}
	defer t.Close()

	var opts []tableau.TraceOption
	if traceVerbose || env.cfg.Tableau.Verbose {
		opts = append(opts, tableau.Verbose())
	}
	res, err := t.Trace(ctx, args[1], args[2:], env.results(traceN), opts...)
	if err != nil {
		return err
	}

	var popts []report.Option
	if traceTracedOnly {
		popts = append(popts, report.TracedOnly())
	}
	return env.printer(cmd.OutOrStdout(), popts...).Trace(res)
}
