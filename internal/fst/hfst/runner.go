package hfst

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

// Command is one invocation of an HFST tool.
type Command struct {
	Name   string
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes HFST tools.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs tools as child processes.
type ExecRunner struct {
	// BinDir holds the tools. Empty means PATH lookup.
	BinDir string
}

// Run starts the tool and waits for it. Standard error is folded into the
// returned error.
func (r ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, r.resolve(c.Name), c.Args...)
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", c.Name, err, msg)
		}
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

func (r ExecRunner) resolve(name string) string {
	if r.BinDir == "" {
		return name
	}
	return filepath.Join(r.BinDir, name)
}

// Tools lists every HFST tool the engine invokes.
var Tools = []string{
	toolCompile, toolCompose, toolDisjunct, toolSubtract, toolRepeat,
	toolMinimize, toolConvert, toolText, toolLookup, toolSummarize, toolSplit,
}

const (
	toolCompile   = "hfst-regexp2fst"
	toolCompose   = "hfst-compose"
	toolDisjunct  = "hfst-disjunct"
	toolSubtract  = "hfst-subtract"
	toolRepeat    = "hfst-repeat"
	toolMinimize  = "hfst-minimize"
	toolConvert   = "hfst-fst2fst"
	toolText      = "hfst-fst2txt"
	toolLookup    = "hfst-lookup"
	toolSummarize = "hfst-summarize"
	toolSplit     = "hfst-split"
)

// ErrToolsMissing is returned by Available when a tool cannot be found.
var ErrToolsMissing = errors.New("hfst tools not found")

// Available checks that every tool can be located in binDir, or on PATH
// when binDir is empty.
func Available(binDir string) error {
	r := ExecRunner{BinDir: binDir}
	var missing []string
	for _, t := range Tools {
		if _, err := exec.LookPath(r.resolve(t)); err != nil {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrToolsMissing, strings.Join(missing, ", "))
	}
	return nil
}
