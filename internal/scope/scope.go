// Package scope defines the prosodic domains a constraint can be restricted to.
package scope

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/otgrammar/internal/regex"
	"github.com/fyrsmithlabs/otgrammar/internal/symbols"
)

// ErrUnknownScope is returned by Parse for unrecognised names.
var ErrUnknownScope = errors.New("unknown scope")

// Scope is a prosodic domain.
type Scope int

const (
	Phrase Scope = iota
	Word
	Syllable
	Onset
	Nucleus
	Coda
	ConsCluster
)

var names = [...]string{"phrase", "word", "syllable", "onset", "nucleus", "coda", "cons_cluster"}

// String returns the lower case name used in grammar files.
func (s Scope) String() string {
	if s < Phrase || s > ConsCluster {
		return fmt.Sprintf("scope(%d)", int(s))
	}
	return names[s]
}

// Parse resolves a scope name. Matching is case-insensitive and accepts
// hyphens in place of underscores.
func Parse(name string) (Scope, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for i, n := range names {
		if n == key {
			return Scope(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownScope, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Ignore returns the boundary markers that are transparent inside the scope,
// or nil when nothing is.
func (s Scope) Ignore(sym *symbols.Set) regex.Node {
	switch s {
	case Phrase:
		return regex.Alt(sym.NuclBound(), sym.WordBound(), sym.SylBound())
	case Word:
		return regex.Alt(sym.NuclBound(), sym.SylBound())
	case Syllable:
		return regex.Alt(sym.NuclBound())
	case ConsCluster:
		return sym.SylBound()
	default:
		return nil
	}
}

// Left returns the left border of the scope.
func (s Scope) Left(sym *symbols.Set) regex.Node {
	switch s {
	case Phrase:
		return regex.Boundary()
	case Word:
		return sym.WordBound()
	case Syllable, Onset:
		return sym.SylBound()
	default:
		return sym.NuclBound()
	}
}

// Right returns the right border of the scope.
func (s Scope) Right(sym *symbols.Set) regex.Node {
	switch s {
	case Phrase:
		return regex.Boundary()
	case Word:
		return sym.WordBound()
	case Syllable, Coda:
		return sym.SylBound()
	default:
		return sym.NuclBound()
	}
}
