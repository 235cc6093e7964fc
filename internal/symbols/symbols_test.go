package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/otgrammar/internal/regex"
)

func TestDefault_Patterns(t *testing.T) {
	s := Default()

	tests := []struct {
		name string
		node regex.Node
		want string
	}{
		{"in", s.In(), "[%>]"},
		{"out", s.Out(), "[%<]"},
		{"no", s.No(), "[%-]"},
		{"insertion", s.Insertion(), "[%>%-%<]"},
		{"mark", s.Mark(), "[%*]"},
		{"bounds", s.Bounds(), "[ [%#] | [%.] | [%,] ]"},
		{"any in", s.AnyIn(), `[ \[%<] ]+`},
		{"any out", s.AnyOut(), `[ \[ [%>] | [ [%#] | [%.] | [%,] ] ] ]+`},
		{"out prefix", s.OutPrefix(), `[ [%>] [ \[%<] ]+ [%<] ]`},
		{"ignore input", s.IgnoreInput(), `[ [ [%>] [ \[%<] ]+ [%<] ] | [%-] ]`},
		{"ignore mark input", s.IgnoreMarkInput(), `[ [ [%>] [ \[%<] ]+ [%<] ] | [%-] | [%*] ]`},
		{"deletion", s.Deletion(), `[ [%>] [ \[%<] ]+ [%<] [%-] ]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, regex.Render(tt.node))
		})
	}
}

func TestIsMarker(t *testing.T) {
	s := Default()
	for _, m := range []string{In, Out, Mark, WordBound, SylBound, NuclBound} {
		assert.True(t, s.IsMarker(m), m)
	}
	assert.False(t, s.IsMarker(No))
	assert.False(t, s.IsMarker("a"))
	assert.False(t, s.IsMarker(".."))
}

func TestNormalisation(t *testing.T) {
	raw := "#.>p<p,>a<a,.#"
	assert.Equal(t, "#.pa.#", StripAlignment(raw))
	assert.Equal(t, "pa", Normalize(StripAlignment(raw)))

	assert.Equal(t, "#.pa.#", StripEpsilon("#.@_EPSILON_SYMBOL_@pa.#"))
	assert.Equal(t, "pa", Normalize("#.p-a*.#"))
	assert.Equal(t, "le.ka", Normalize("#.le.ka.#"))
}
