// Package hfst implements fst.Engine on top of the HFST command line tools.
//
// Every transducer is a file in the engine's work directory and every
// operation is one tool invocation through a Runner. Lenient composition is
// compiled as [A .o. B] .P. A from file references, and infinite ambiguity is
// decided in Go from the AT&T text form.
package hfst

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otgrammar/internal/fst"
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
)

// Engine drives the HFST tools.
type Engine struct {
	runner Runner
	dir    string
	logger *zap.Logger

	seq    atomic.Uint64
	mu     sync.RWMutex
	closed bool
}

var _ fst.Engine = (*Engine)(nil)

type options struct {
	runner  Runner
	binDir  string
	workDir string
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*options)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option { return func(o *options) { o.runner = r } }

// WithBinDir sets the directory holding the HFST tools.
func WithBinDir(dir string) Option { return func(o *options) { o.binDir = dir } }

// WithWorkDir sets the parent of the engine's scratch directory. Empty means
// the system temp directory.
func WithWorkDir(dir string) Option { return func(o *options) { o.workDir = dir } }

// WithLogger sets the logger. Commands are logged at debug level.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// New creates an engine with a fresh scratch directory.
func New(opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.runner == nil {
		o.runner = ExecRunner{BinDir: o.binDir}
	}
	if o.workDir != "" {
		if err := os.MkdirAll(o.workDir, 0o755); err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(o.workDir, "otab-"+uuid.NewString()+"-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	o.logger.Debug("hfst engine ready", zap.String("dir", dir))
	return &Engine{runner: o.runner, dir: dir, logger: o.logger}, nil
}

// Dir returns the scratch directory.
func (e *Engine) Dir() string { return e.dir }

// Compile writes the rendered recipe to hfst-regexp2fst.
func (e *Engine) Compile(ctx context.Context, n regex.Node) (fst.Transducer, error) {
	text := regex.Render(n)
	out := e.newPath(".hfst")
	if err := e.run(ctx, Command{
		Name:  toolCompile,
		Args:  []string{"-o", out},
		Stdin: strings.NewReader(text + "\n"),
	}); err != nil {
		return nil, fmt.Errorf("compile %s: %w", abbreviate(text), err)
	}
	if err := mustExist(out); err != nil {
		return nil, fmt.Errorf("compile %s: %w", abbreviate(text), err)
	}
	return &Transducer{e: e, path: out}, nil
}

// WriteAll concatenates the transducers' binary files. HFST streams are a
// plain sequence of headed transducers, so concatenation is a valid stream.
func (e *Engine) WriteAll(ctx context.Context, w io.Writer, ts []fst.Transducer) error {
	for i, t := range ts {
		if err := ctx.Err(); err != nil {
			return err
		}
		ht, err := e.own(t)
		if err != nil {
			return fmt.Errorf("transducer %d: %w", i, err)
		}
		if err := copyFileTo(w, ht.path); err != nil {
			return fmt.Errorf("transducer %d: %w", i, err)
		}
	}
	return nil
}

// ReadAll spools r to disk and splits it with hfst-split.
func (e *Engine) ReadAll(ctx context.Context, r io.Reader) ([]fst.Transducer, error) {
	stream := e.newPath(".stream")
	f, err := os.Create(stream)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	defer os.Remove(stream)

	prefix := strings.TrimSuffix(stream, ".stream") + "-part-"
	if err := e.run(ctx, Command{
		Name: toolSplit,
		Args: []string{"-p", prefix, "-e", ".hfst", "-i", stream},
	}); err != nil {
		return nil, err
	}

	parts, err := splitParts(prefix)
	if err != nil {
		return nil, err
	}
	out := make([]fst.Transducer, 0, len(parts))
	for _, p := range parts {
		out = append(out, &Transducer{e: e, path: p})
	}
	return out, nil
}

// Close removes the scratch directory.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return os.RemoveAll(e.dir)
}

func (e *Engine) run(ctx context.Context, c Command) error {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return fst.ErrClosed
	}
	start := time.Now()
	err := e.runner.Run(ctx, c)
	e.logger.Debug("hfst command",
		zap.String("tool", c.Name),
		zap.Strings("args", c.Args),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return fst.EngineError(c.Name, err)
	}
	return nil
}

func (e *Engine) newPath(ext string) string {
	return filepath.Join(e.dir, fmt.Sprintf("%08d%s", e.seq.Add(1), ext))
}

func (e *Engine) own(t fst.Transducer) (*Transducer, error) {
	ht, ok := t.(*Transducer)
	if !ok || ht.e != e {
		return nil, fmt.Errorf("%w: transducer %T belongs to another engine", fst.ErrEngine, t)
	}
	if ht.closed {
		return nil, fst.ErrClosed
	}
	return ht, nil
}

// splitParts lists the files written by hfst-split in stream order.
func splitParts(prefix string) ([]string, error) {
	dir, base := filepath.Split(prefix)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type part struct {
		idx  int
		path string
	}
	var parts []part
	for _, ent := range entries {
		name := ent.Name()
		rest, ok := strings.CutPrefix(name, base)
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(rest, ".hfst"))
		if err != nil {
			continue
		}
		parts = append(parts, part{idx: idx, path: filepath.Join(dir, name)})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].idx < parts[j].idx })
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = p.path
	}
	return out, nil
}

func copyFileTo(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func mustExist(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: no output written", fst.ErrEngine)
	}
	return nil
}

func abbreviate(s string) string {
	const max = 120
	if len(s) <= max {
		return strconv.Quote(s)
	}
	return strconv.Quote(s[:max] + "...")
}

func fileRef(path string) regex.Node { return regex.Text(`@"` + path + `"@`) }
