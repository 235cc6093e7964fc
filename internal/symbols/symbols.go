// Package symbols defines the reserved markers that align input and output
// tapes, flag violations and mark prosodic boundaries inside candidates.
//
// A Set is built once with Default and handed to every component that builds
// recipes. It is never mutated after construction.
package symbols

import (
	"regexp"

	"github.com/fyrsmithlabs/otgrammar/internal/regex"
)

// Marker characters.
const (
	In        = ">"
	Out       = "<"
	No        = "-"
	Mark      = "*"
	WordBound = "#"
	SylBound  = "."
	NuclBound = ","
)

// Set holds the marker patterns and the composite patterns derived from them.
type Set struct {
	in, out, no, ins, mark    regex.Node
	word, syl, nucl, bounds   regex.Node
	anyIn, anyOut, outPrefix  regex.Node
	ignoreInput, ignoreMarkIn regex.Node
	deletion                  regex.Node
	markers                   map[string]struct{}
}

// Default returns the standard marker set.
func Default() *Set {
	s := &Set{
		in:   regex.Sym(In),
		out:  regex.Sym(Out),
		no:   regex.Sym(No),
		ins:  regex.Sym(In + No + Out),
		mark: regex.Sym(Mark),
		word: regex.Sym(WordBound),
		syl:  regex.Sym(SylBound),
		nucl: regex.Sym(NuclBound),
	}
	s.bounds = regex.Alt(s.word, s.syl, s.nucl)
	s.anyIn = regex.Plus(regex.Other(s.out))
	s.anyOut = regex.Plus(regex.Other(regex.Alt(s.in, s.bounds)))
	s.outPrefix = regex.Seq(s.in, s.anyIn, s.out)
	s.ignoreInput = regex.Alt(s.outPrefix, s.no)
	s.ignoreMarkIn = regex.Alt(s.outPrefix, s.no, s.mark)
	s.deletion = regex.Seq(s.in, s.anyIn, s.out, s.no)
	s.markers = map[string]struct{}{
		In: {}, Out: {}, Mark: {}, NuclBound: {}, SylBound: {}, WordBound: {},
	}
	return s
}

// In marks the start of an input segment.
func (s *Set) In() regex.Node { return s.in }

// Out separates an input segment from its output segment.
func (s *Set) Out() regex.Node { return s.out }

// No stands in for a missing segment on either tape.
func (s *Set) No() regex.Node { return s.no }

// Insertion is the input side of an inserted segment.
func (s *Set) Insertion() regex.Node { return s.ins }

// Mark is the violation mark.
func (s *Set) Mark() regex.Node { return s.mark }

// WordBound is the word boundary.
func (s *Set) WordBound() regex.Node { return s.word }

// SylBound is the syllable boundary.
func (s *Set) SylBound() regex.Node { return s.syl }

// NuclBound is the nucleus boundary.
func (s *Set) NuclBound() regex.Node { return s.nucl }

// Bounds matches any boundary marker.
func (s *Set) Bounds() regex.Node { return s.bounds }

// AnyIn matches a non-empty input segment.
func (s *Set) AnyIn() regex.Node { return s.anyIn }

// AnyOut matches a non-empty output segment.
func (s *Set) AnyOut() regex.Node { return s.anyOut }

// OutPrefix matches everything preceding an output segment.
func (s *Set) OutPrefix() regex.Node { return s.outPrefix }

// IgnoreInput matches material to skip when reading the output tape.
func (s *Set) IgnoreInput() regex.Node { return s.ignoreInput }

// IgnoreMarkInput is IgnoreInput plus violation marks.
func (s *Set) IgnoreMarkInput() regex.Node { return s.ignoreMarkIn }

// Deletion matches a deleted input segment.
func (s *Set) Deletion() regex.Node { return s.deletion }

// IsMarker reports whether sym is one of the reserved markers that may appear
// bare inside a context.
func (s *Set) IsMarker(sym string) bool {
	_, ok := s.markers[sym]
	return ok
}

var (
	epsilonPattern  = regexp.MustCompile(`@_EPSILON_SYMBOL_@`)
	alignPattern    = regexp.MustCompile(`>[^<]+<|,`)
	outMarksPattern = regexp.MustCompile(`>[^<]+<|-|\*|,|#\.|\.#`)
)

// StripEpsilon removes engine epsilon symbols from a looked up string.
func StripEpsilon(s string) string { return epsilonPattern.ReplaceAllString(s, "") }

// StripAlignment removes input segments, tape markers and nucleus boundaries,
// leaving the output with syllable and word boundaries.
func StripAlignment(s string) string { return alignPattern.ReplaceAllString(s, "") }

// Normalize reduces a candidate to the plain output form that callers write
// when naming candidates to trace.
func Normalize(s string) string { return outMarksPattern.ReplaceAllString(s, "") }
