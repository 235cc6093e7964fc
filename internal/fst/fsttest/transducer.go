package fsttest

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/otgrammar/internal/fst"
)

// Transducer is a fake fst.Transducer that remembers how it was built.
type Transducer struct {
	ID int

	e         *Engine
	steps     []string
	optimized bool
	closed    bool
}

var _ fst.Transducer = (*Transducer)(nil)

// Steps returns the operations that produced t.
func (t *Transducer) Steps() []string { return append([]string(nil), t.steps...) }

// Describe joins the steps into one line.
func (t *Transducer) Describe() string { return "{" + strings.Join(t.steps, "; ") + "}" }

// Count returns how many steps start with prefix.
func (t *Transducer) Count(prefix string) int {
	n := 0
	for _, s := range t.steps {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

// Optimized reports whether OptimizeLookup was the last change.
func (t *Transducer) Optimized() bool { return t.optimized }

// Closed reports whether Close was called.
func (t *Transducer) Closed() bool { return t.closed }

func (t *Transducer) binary(op string, other fst.Transducer) error {
	if t.closed {
		return fst.ErrClosed
	}
	o, err := t.e.own(other)
	if err != nil {
		return err
	}
	t.mutate(op + " " + o.Describe())
	return nil
}

func (t *Transducer) unary(op string) error {
	if t.closed {
		return fst.ErrClosed
	}
	t.mutate(op)
	return nil
}

func (t *Transducer) mutate(step string) {
	t.steps = append(t.steps, step)
	t.optimized = false
	t.e.record(fmt.Sprintf("#%d %s", t.ID, step))
}

func (t *Transducer) Compose(_ context.Context, other fst.Transducer) error {
	return t.binary("compose", other)
}

func (t *Transducer) LenientCompose(_ context.Context, other fst.Transducer) error {
	return t.binary("lenient", other)
}

func (t *Transducer) Disjunct(_ context.Context, other fst.Transducer) error {
	return t.binary("disjunct", other)
}

func (t *Transducer) Subtract(_ context.Context, other fst.Transducer) error {
	return t.binary("subtract", other)
}

func (t *Transducer) RepeatStar(context.Context) error { return t.unary("star") }

func (t *Transducer) Minimize(context.Context) error { return t.unary("minimize") }

func (t *Transducer) Copy(context.Context) (fst.Transducer, error) {
	if t.closed {
		return nil, fst.ErrClosed
	}
	c := t.e.newTransducer(t.steps)
	c.optimized = t.optimized
	return c, nil
}

func (t *Transducer) OptimizeLookup(context.Context) error {
	if t.closed {
		return fst.ErrClosed
	}
	t.optimized = true
	return nil
}

func (t *Transducer) IsInfinitelyAmbiguous(context.Context) (bool, error) {
	if t.closed {
		return false, fst.ErrClosed
	}
	if t.e.InfiniteFunc == nil {
		return false, nil
	}
	return t.e.InfiniteFunc(t), nil
}

func (t *Transducer) Lookup(_ context.Context, input string, max int) ([]fst.Path, error) {
	if t.closed {
		return nil, fst.ErrClosed
	}
	t.e.record(fmt.Sprintf("#%d lookup %s %d", t.ID, input, max))
	var outs []string
	if t.e.LookupFunc != nil {
		outs = t.e.LookupFunc(t, input)
	} else {
		outs = t.e.Results[input]
	}
	if max >= 0 && len(outs) > max {
		outs = outs[:max]
	}
	paths := make([]fst.Path, 0, len(outs))
	for _, o := range outs {
		paths = append(paths, fst.Path{Output: o})
	}
	return paths, nil
}

func (t *Transducer) Size(context.Context) (fst.Size, error) {
	if t.closed {
		return fst.Size{}, fst.ErrClosed
	}
	return fst.Size{States: len(t.steps) + 1, Arcs: len(t.steps)}, nil
}

func (t *Transducer) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.e.mu.Lock()
	delete(t.e.live, t.ID)
	t.e.mu.Unlock()
	return nil
}
