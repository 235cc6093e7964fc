package main

import (
	"github.com/spf13/cobra"
)

var (
	inspectConstraints bool
	inspectRecipes     bool
)

// inspectCmd summarizes the automata of a tableau
var inspectCmd = &cobra.Command{
	Use:   "inspect TABLEAU",
	Short: "Show the size and ambiguity of every stage automaton",
	Long: `Inspect lists every automaton of a built tableau in the order it is saved:
the generator, a before/after pair per constraint and the final automaton.

With --constraints the ranking is listed instead, bundle members under their
bundle. With --recipes the .tableau text (method, then name, precision and
recipe per constraint) is written as it would be saved.

Examples:
  otab inspect grammars/hawaiian.tableau
  otab inspect --constraints grammars/hawaiian.yaml
  otab inspect --recipes grammars/hawaiian.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectConstraints, "constraints", false, "list the constraint ranking")
	inspectCmd.Flags().BoolVar(&inspectRecipes, "recipes", false, "write the .tableau text")
	inspectCmd.MarkFlagsMutuallyExclusive("constraints", "recipes")
}

func runInspect(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	switch {
	case inspectConstraints:
		return env.printer(out).Constraints(t.Constraints())
	case inspectRecipes:
		return t.WriteText(out)
	}

	snaps, err := t.Inspect(ctx)
	if err != nil {
		return err
	}
	return env.printer(out).Inspect(snaps)
}
