package hfst

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fyrsmithlabs/otgrammar/internal/fst"
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
)

// Transducer is a transducer file in the engine's work directory.
type Transducer struct {
	e      *Engine
	path   string
	olPath string
	closed bool
}

var _ fst.Transducer = (*Transducer)(nil)

// Path returns the file holding the transducer.
func (t *Transducer) Path() string { return t.path }

func (t *Transducer) Compose(ctx context.Context, other fst.Transducer) error {
	return t.binary(ctx, toolCompose, other)
}

func (t *Transducer) Disjunct(ctx context.Context, other fst.Transducer) error {
	return t.binary(ctx, toolDisjunct, other)
}

func (t *Transducer) Subtract(ctx context.Context, other fst.Transducer) error {
	return t.binary(ctx, toolSubtract, other)
}

func (t *Transducer) LenientCompose(ctx context.Context, other fst.Transducer) error {
	if t.closed {
		return fst.ErrClosed
	}
	o, err := t.e.own(other)
	if err != nil {
		return err
	}
	self := fileRef(t.path)
	r, err := t.e.Compile(ctx, regex.PriorityUnion(regex.Chain(self, fileRef(o.path)), self))
	if err != nil {
		return err
	}
	return t.replace(r.(*Transducer).path)
}

func (t *Transducer) RepeatStar(ctx context.Context) error {
	return t.unary(ctx, toolRepeat, "-f", "0")
}

func (t *Transducer) Minimize(ctx context.Context) error {
	return t.unary(ctx, toolMinimize)
}

func (t *Transducer) Copy(context.Context) (fst.Transducer, error) {
	if t.closed {
		return nil, fst.ErrClosed
	}
	c := &Transducer{e: t.e, path: t.e.newPath(".hfst")}
	if err := copyFile(c.path, t.path); err != nil {
		return nil, err
	}
	if t.olPath != "" {
		c.olPath = t.e.newPath(".ol")
		if err := copyFile(c.olPath, t.olPath); err != nil {
			os.Remove(c.path)
			return nil, err
		}
	}
	return c, nil
}

// OptimizeLookup writes an optimized-lookup copy used by later lookups. The
// basic form stays in place for further operations and streaming.
func (t *Transducer) OptimizeLookup(ctx context.Context) error {
	if t.closed {
		return fst.ErrClosed
	}
	out := t.e.newPath(".ol")
	if err := t.e.run(ctx, Command{
		Name: toolConvert,
		Args: []string{"-f", "optimized-lookup-unweighted", "-i", t.path, "-o", out},
	}); err != nil {
		return err
	}
	t.dropLookup()
	t.olPath = out
	return nil
}

func (t *Transducer) IsInfinitelyAmbiguous(ctx context.Context) (bool, error) {
	if t.closed {
		return false, fst.ErrClosed
	}
	var buf bytes.Buffer
	if err := t.e.run(ctx, Command{
		Name:   toolText,
		Args:   []string{"-i", t.path},
		Stdout: &buf,
	}); err != nil {
		return false, err
	}
	g, err := parseATT(&buf)
	if err != nil {
		return false, fst.EngineError(toolText, err)
	}
	return g.infinitelyAmbiguous(), nil
}

// Lookup streams hfst-lookup output and stops the tool once max paths have
// arrived. A negative max reads everything.
func (t *Transducer) Lookup(ctx context.Context, input string, max int) ([]fst.Path, error) {
	if t.closed {
		return nil, fst.ErrClosed
	}
	if max == 0 {
		return nil, nil
	}
	src := t.path
	if t.olPath != "" {
		src = t.olPath
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	col := &pathCollector{max: max, stop: cancel}
	err := t.e.run(runCtx, Command{
		Name:   toolLookup,
		Args:   []string{src},
		Stdin:  strings.NewReader(input + "\n"),
		Stdout: col,
	})
	if err != nil && !(col.done && ctx.Err() == nil) {
		return nil, err
	}
	col.flush()
	return col.paths, nil
}

func (t *Transducer) Size(ctx context.Context) (fst.Size, error) {
	if t.closed {
		return fst.Size{}, fst.ErrClosed
	}
	var buf bytes.Buffer
	if err := t.e.run(ctx, Command{
		Name:   toolSummarize,
		Args:   []string{"-i", t.path},
		Stdout: &buf,
	}); err != nil {
		return fst.Size{}, err
	}
	s, err := parseSummary(&buf)
	if err != nil {
		return s, fst.EngineError(toolSummarize, err)
	}
	return s, nil
}

// Close deletes the transducer's files.
func (t *Transducer) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	err := removeQuiet(t.path)
	if t.olPath != "" {
		err = errors.Join(err, removeQuiet(t.olPath))
	}
	return err
}

func (t *Transducer) binary(ctx context.Context, tool string, other fst.Transducer) error {
	if t.closed {
		return fst.ErrClosed
	}
	o, err := t.e.own(other)
	if err != nil {
		return err
	}
	out := t.e.newPath(".hfst")
	if err := t.e.run(ctx, Command{
		Name: tool,
		Args: []string{"-1", t.path, "-2", o.path, "-o", out},
	}); err != nil {
		return err
	}
	return t.replace(out)
}

func (t *Transducer) unary(ctx context.Context, tool string, extra ...string) error {
	if t.closed {
		return fst.ErrClosed
	}
	out := t.e.newPath(".hfst")
	args := append(append([]string(nil), extra...), "-i", t.path, "-o", out)
	if err := t.e.run(ctx, Command{Name: tool, Args: args}); err != nil {
		return err
	}
	return t.replace(out)
}

// replace makes next the transducer's file and discards the old one together
// with any optimized-lookup copy.
func (t *Transducer) replace(next string) error {
	if err := mustExist(next); err != nil {
		return err
	}
	old := t.path
	t.path = next
	t.dropLookup()
	if err := removeQuiet(old); err != nil {
		return fmt.Errorf("remove %s: %w", old, err)
	}
	return nil
}

func (t *Transducer) dropLookup() {
	if t.olPath != "" {
		_ = removeQuiet(t.olPath)
		t.olPath = ""
	}
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func removeQuiet(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
