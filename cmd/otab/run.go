package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/otgrammar/internal/tableau"
)

// ErrDesiredLost is returned by run --check when a desired winner loses.
var ErrDesiredLost = errors.New("desired winner lost")

var (
	runRegex bool
	runN     int
	runBatch string
	runJobs  int
	runCheck bool
)

// runCmd looks up winners
var runCmd = &cobra.Command{
	Use:   "run TABLEAU [INPUT [WINNER]]",
	Short: "Look up the winners for an input",
	Long: `Run looks up the winners for INPUT and reports whether WINNER is among
them. WINNER defaults to INPUT itself, the faithful candidate.

TABLEAU is a saved base path (BASE, BASE.tableau or BASE.hfst) or a grammar
file, which is built in memory first.

With --batch, inputs are read one per line from a file ("-" for stdin),
optionally followed by a tab and the desired winner. Blank lines and lines
starting with # are skipped.

Examples:
  # Does "pa" survive?
  otab run grammars/hawaiian pa

  # Is some winner of "kat" two syllables long?
  otab run --regex grammars/hawaiian kat '[^.]*\.[^.]*'

  # Check a list of forms, failing if any desired winner loses
  otab run --batch forms.tsv --check grammars/hawaiian`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.BoolVarP(&runRegex, "regex", "r", false, "treat WINNER as a regular expression")
	f.IntVarP(&runN, "results", "n", 0, "number of winners to show (default: tableau.results)")
	f.StringVarP(&runBatch, "batch", "b", "", "read inputs from this file, - for stdin")
	f.IntVarP(&runJobs, "jobs", "j", 4, "concurrent lookups in batch mode")
	f.BoolVar(&runCheck, "check", false, "exit non-zero when a desired winner loses")
}

// query is one input and its desired winner.
type query struct {
	input   string
	desired string
}

func runRun(cmd *cobra.Command, args []string) error {
	queries, err := runQueryArgs(cmd.InOrStdin(), args[1:])
	if err != nil {
		return err
	}

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

	var opts []tableau.RunOption
	if runRegex {
		opts = append(opts, tableau.AsRegex())
	}
	results, err := runQueries(ctx, t, queries, env.results(runN), runJobs, opts...)
	if err != nil {
		return err
	}

	p := env.printer(cmd.OutOrStdout())
	lost := 0
	for _, r := range results {
		if err := p.Run(r); err != nil {
			return err
		}
		if !r.Wins {
			lost++
		}
	}
	if runCheck && lost > 0 {
		return fmt.Errorf("%w: %d of %d", ErrDesiredLost, lost, len(results))
	}
	return nil
}

// runQueryArgs collects the queries from the positional arguments or from
// the batch file.
func runQueryArgs(stdin io.Reader, args []string) ([]query, error) {
	if runBatch == "" {
		if len(args) == 0 {
			return nil, errors.New("an INPUT is required unless --batch is given")
		}
		q := query{input: args[0]}
		if len(args) > 1 {
			q.desired = args[1]
		}
		return []query{q}, nil
	}
	if len(args) > 0 {
		return nil, errors.New("INPUT and WINNER cannot be combined with --batch")
	}

	if runBatch == "-" {
		return readQueries(stdin)
	}
	f, err := os.Open(runBatch)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readQueries(f)
}

// readQueries parses "input[<TAB>desired]" lines.
func readQueries(r io.Reader) ([]query, error) {
	var qs []query
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if trimmed := strings.TrimSpace(text); trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		input, desired, _ := strings.Cut(text, "\t")
		input = strings.TrimSpace(input)
		if input == "" {
			return nil, fmt.Errorf("line %d: empty input", line)
		}
		qs = append(qs, query{input: input, desired: strings.TrimSpace(desired)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return qs, nil
}

// runQueries runs every query with at most jobs lookups in flight. Results
// are returned in query order.
func runQueries(ctx context.Context, t *tableau.Tableau, qs []query, n, jobs int, opts ...tableau.RunOption) ([]*tableau.RunResult, error) {
	results := make([]*tableau.RunResult, len(qs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, q := range qs {
		g.Go(func() error {
			r, err := t.Run(gctx, q.input, q.desired, n, opts...)
			if err != nil {
				return fmt.Errorf("run %q: %w", q.input, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
