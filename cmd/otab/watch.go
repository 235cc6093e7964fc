package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otgrammar/internal/fst/hfst"
	"github.com/fyrsmithlabs/otgrammar/internal/report"
	"github.com/fyrsmithlabs/otgrammar/internal/watch"
)

var (
	watchOutput   string
	watchMethod   string
	watchProbes   []string
	watchDebounce time.Duration
)

// watchCmd rebuilds a grammar whenever it is saved
var watchCmd = &cobra.Command{
	Use:   "watch GRAMMAR",
	Short: "Rebuild a grammar whenever the file changes",
	Long: `Watch builds GRAMMAR, then rebuilds and saves it every time the file is
written. Each --probe is run against the fresh tableau after every build.
A failed build is reported and the previous saved tableau is left alone.

Examples:
  otab watch grammars/hawaiian.yaml --probe pa --probe pat=pa`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVarP(&watchOutput, "output", "o", "", "output base path (default: grammar path without extension)")
	f.StringVarP(&watchMethod, "method", "m", "", "penalization method: matching or counting (default: from grammar)")
	f.StringArrayVarP(&watchProbes, "probe", "p", nil, "INPUT or INPUT=WINNER to run after each build (repeatable)")
	f.DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before rebuilding")
}

func runWatch(cmd *cobra.Command, args []string) error {
	probes := make([]query, 0, len(watchProbes))
	for _, p := range watchProbes {
		q, err := parseProbe(p)
		if err != nil {
			return err
		}
		probes = append(probes, q)
	}

	ctx := cmd.Context()
	eng, err := env.engine()
	if err != nil {
		return err
	}
	defer eng.Close()

	path := args[0]
	w, err := watch.New([]string{path},
		watch.WithDebounce(watchDebounce),
		watch.WithLogger(env.log.Underlying().Named("watch")))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	out := cmd.OutOrStdout()
	rebuild(ctx, eng, out, path, probes)
	for range w.Changes() {
		fmt.Fprintf(out, "\n%s changed, rebuilding\n", path)
		rebuild(ctx, eng, out, path, probes)
	}
	return nil
}

// rebuild builds and saves the grammar, then runs the probes. Failures are
// reported, not returned, so that watching continues.
func rebuild(ctx context.Context, eng *hfst.Engine, out io.Writer, path string, probes []query) {
	start := time.Now()
	t, err := env.buildGrammar(ctx, eng, path, watchMethod)
	if err != nil {
		env.log.Error(ctx, "rebuild failed", zap.String("grammar", path), zap.Error(err))
		fmt.Fprintf(out, "Build failed: %v\n", err)
		return
	}
	defer t.Close()

	base := outputBase(path, watchOutput)
	if err := t.Save(ctx, base); err != nil {
		env.log.Error(ctx, "save failed", zap.String("base", base), zap.Error(err))
		fmt.Fprintf(out, "Save failed: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Build complete in %s.\n", report.FormatDuration(time.Since(start)))

	if len(probes) == 0 {
		return
	}
	results, err := runQueries(ctx, t, probes, env.results(0), 1)
	if err != nil {
		fmt.Fprintf(out, "Probe failed: %v\n", err)
		return
	}
	p := env.printer(out)
	for _, r := range results {
		_ = p.Run(r)
	}
}

// parseProbe parses INPUT or INPUT=WINNER.
func parseProbe(s string) (query, error) {
	input, desired, _ := strings.Cut(s, "=")
	input = strings.TrimSpace(input)
	if input == "" {
		return query{}, fmt.Errorf("probe %q: empty input", s)
	}
	return query{input: input, desired: strings.TrimSpace(desired)}, nil
}
