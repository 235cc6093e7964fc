package tableau

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/otgrammar/internal/constraint"
	"github.com/fyrsmithlabs/otgrammar/internal/fst"
	"github.com/fyrsmithlabs/otgrammar/internal/penalty"
)

// File extensions of a saved tableau.
const (
	TableauExt = ".tableau"
	HFSTExt    = ".hfst"
)

// Save writes base+".tableau" and base+".hfst".
func (t *Tableau) Save(ctx context.Context, base string) (err error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.built {
		return ErrNotBuilt
	}

	ctx, span := t.tracer.Start(t.context(ctx), "tableau.Save", spanAttrs(t),
		trace.WithAttributes(attribute.String("tableau.path", base)))
	defer span.End()
	defer func() {
		if err != nil {
			failSpan(span, err)
		}
	}()

	if err := writeFile(base+TableauExt, t.writeText); err != nil {
		return err
	}
	return writeFile(base+HFSTExt, func(w io.Writer) error {
		return t.engine.WriteAll(ctx, w, t.automata())
	})
}

// WriteText writes the .tableau text: the penalization method, then one
// "name<TAB>precision<TAB>recipe" line per constraint.
func (t *Tableau) WriteText(w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.writeText(w)
}

func (t *Tableau) writeText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, string(t.method))
	for _, c := range t.constraints {
		fmt.Fprintln(bw, c.String())
	}
	return bw.Flush()
}

// automata returns the automata in slot order: generator, each before/after
// pair, final.
func (t *Tableau) automata() []fst.Transducer {
	ts := make([]fst.Transducer, 0, 2*len(t.stages)+2)
	ts = append(ts, t.gen)
	for _, s := range t.stages {
		ts = append(ts, s.Before, s.After)
	}
	return append(ts, t.final)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Load reads a tableau saved with Save. The result is built.
func Load(ctx context.Context, e fst.Engine, tableauPath, hfstPath string, opts ...Option) (tab *Tableau, err error) {
	tf, err := os.Open(tableauPath)
	if err != nil {
		return nil, err
	}
	defer tf.Close()
	hf, err := os.Open(hfstPath)
	if err != nil {
		return nil, err
	}
	defer hf.Close()
	return Read(ctx, e, tf, hf, opts...)
}

// Read reads a tableau from its text and automaton streams.
func Read(ctx context.Context, e fst.Engine, text, automata io.Reader, opts ...Option) (*Tableau, error) {
	tab := New(e, nil, opts...)
	ctx, span := tab.tracer.Start(tab.context(ctx), "tableau.Load", spanAttrs(tab))
	defer span.End()

	tab, err := read(ctx, tab, text, automata)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	return tab, nil
}

func read(ctx context.Context, tab *Tableau, text, automata io.Reader) (*Tableau, error) {
	method, cs, err := parseText(tab, text)
	if err != nil {
		return nil, err
	}
	tab.method = method

	ts, err := tab.engine.ReadAll(ctx, automata)
	if err != nil {
		return nil, fmt.Errorf("read automata: %w", err)
	}
	if want := 2*len(cs) + 2; len(ts) != want {
		fst.CloseAll(ts...)
		return nil, fmt.Errorf("%w: %d constraints need %d automata, stream has %d",
			ErrStageMismatch, len(cs), want, len(ts))
	}
	for _, tr := range ts {
		if _, err := tab.optimize(ctx, tr); err != nil {
			fst.CloseAll(ts...)
			return nil, err
		}
	}

	tab.gen = ts[0]
	for i, c := range cs {
		tab.stages = append(tab.stages, Stage{Constraint: c, Before: ts[2*i+1], After: ts[2*i+2]})
	}
	tab.final = ts[len(ts)-1]
	tab.constraints = cs
	tab.built = true
	return tab, nil
}

func parseText(tab *Tableau, r io.Reader) (penalty.Method, []*constraint.Constraint, error) {
	b := constraint.NewBuilder(tab.sym)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("%w: empty file", ErrMalformedTableau)
	}
	method, err := penalty.ParseMethod(sc.Text())
	if err != nil {
		return "", nil, fmt.Errorf("%w: line 1: %w", ErrMalformedTableau, err)
	}

	var cs []*constraint.Constraint
	for line := 2; sc.Scan(); line++ {
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			continue
		}
		fields := strings.SplitN(text, "\t", 3)
		if len(fields) != 3 {
			return "", nil, fmt.Errorf("%w: line %d: want name, precision and recipe", ErrMalformedTableau, line)
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return "", nil, fmt.Errorf("%w: line %d: precision: %w", ErrMalformedTableau, line, err)
		}
		c, err := b.Raw(fields[2], constraint.WithName(fields[0]), constraint.WithPrecision(n))
		if err != nil {
			return "", nil, fmt.Errorf("%w: line %d: %w", ErrMalformedTableau, line, err)
		}
		cs = append(cs, c)
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return "", nil, fmt.Errorf("%w: %w", ErrMalformedTableau, err)
		}
		return "", nil, err
	}
	return method, cs, nil
}
