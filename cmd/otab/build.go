package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/otgrammar/internal/fst/hfst"
	"github.com/fyrsmithlabs/otgrammar/internal/report"
	"github.com/fyrsmithlabs/otgrammar/internal/tableau"
)

var (
	// buildOutput is the base path of the saved .tableau/.hfst pair
	buildOutput string
	// buildMethod overrides the grammar's penalization method
	buildMethod string
)

// buildCmd compiles a grammar and saves the built tableau
var buildCmd = &cobra.Command{
	Use:   "build GRAMMAR",
	Short: "Build a tableau from a grammar file and save it",
	Long: `Build compiles a YAML or TOML grammar, applies every constraint in ranking
order and saves the result as BASE.tableau and BASE.hfst.

Examples:
  # Build grammars/hawaiian.yaml into grammars/hawaiian.{tableau,hfst}
  otab build grammars/hawaiian.yaml

  # Build with counting penalization into out/hw.{tableau,hfst}
  otab build -m counting -o out/hw grammars/hawaiian.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output base path (default: grammar path without extension)")
	buildCmd.Flags().StringVarP(&buildMethod, "method", "m", "", "penalization method: matching or counting (default: from grammar)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, err := env.engine()
	if err != nil {
		return err
	}
	defer eng.Close()

	start := time.Now()
	base, err := buildAndSave(ctx, eng, args[0], buildOutput, buildMethod)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Build complete in %s.\n", report.FormatDuration(time.Since(start)))
	fmt.Fprintf(out, "Saved %s and %s\n", base+tableau.TableauExt, base+tableau.HFSTExt)
	return nil
}

// buildAndSave builds the grammar at path and saves it, returning the base
// path written.
func buildAndSave(ctx context.Context, eng *hfst.Engine, path, output, method string) (string, error) {
	t, err := env.buildGrammar(ctx, eng, path, method)
	if err != nil {
		return "", err
	}
	defer t.Close()

	base := outputBase(path, output)
	if err := t.Save(ctx, base); err != nil {
		return "", fmt.Errorf("saving %s: %w", base, err)
	}
	return base, nil
}
