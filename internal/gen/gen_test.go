package gen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/otgrammar/internal/fst/fsttest"
	"github.com/fyrsmithlabs/otgrammar/internal/penalty"
	"github.com/fyrsmithlabs/otgrammar/internal/phoneme"
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
	"github.com/fyrsmithlabs/otgrammar/internal/symbols"
)

const (
	alph      = `[ [%a] | [%p] ]`
	outPrefix = `[ [%>] [ \[%<] ]+ [%<] ]`
)

func tiny() *phoneme.Inventory {
	return phoneme.New(phoneme.Spec{Phonemes: map[string]map[string]string{
		"a": {"syllabic": "+", "approximant": "+"},
		"p": {"syllabic": "-", "continuant": "-"},
	}})
}

func TestMorphGen_Recipes(t *testing.T) {
	g := NewMorphGen(symbols.Default(), tiny())
	tagger, edits := g.Recipes()

	assert.Equal(t, "[ [ [%.]:0 ] | [ [ 0:[%>] ] "+alph+" ] ]*", regex.Render(tagger))
	require.Len(t, edits, 3)
	assert.Equal(t, "[ [ [%>] "+alph+" ] [ 0:[ [%<] "+alph+" ] ] ]", regex.Render(edits[0]))
	assert.Equal(t, "[ 0:[ [%>] [%-] [%<] "+alph+" ] ]", regex.Render(edits[1]))
	assert.Equal(t, "[ [ [%>] "+alph+" ] [ 0:[ [%<] [%-] ] ] ]", regex.Render(edits[2]))

	assert.Equal(t, "?* -> [%#] ... [%#] || .#. _ .#.", regex.Render(g.Surround()))
}

func TestMorphGen_RecipeOptions(t *testing.T) {
	out := phoneme.New(phoneme.Spec{Phonemes: map[string]map[string]string{"b": {"voice": "+"}}})
	g := NewMorphGen(symbols.Default(), tiny(),
		WithOutput(out), WithoutInsertion(), WithoutDeletion(), WithIgnore(regex.Sym("+")))
	tagger, edits := g.Recipes()

	assert.Equal(t, "[ [ [%.]:0 ] | [ [ 0:[%>] ] "+alph+" ] | [%+] ]*", regex.Render(tagger))
	require.Len(t, edits, 2)
	assert.Equal(t, "[ [ [%>] "+alph+" ] [ 0:[ [%<] [%b] ] ] ]", regex.Render(edits[0]))
	assert.Equal(t, "[%+]", regex.Render(edits[1]))
}

func TestMorphGen_Generate(t *testing.T) {
	ctx := context.Background()
	e := fsttest.NewEngine()
	sym := symbols.Default()
	g := NewMorphGen(sym, tiny(), WithMaxInsertions(2), WithSyllabifier(NewRandomSyllabifier(sym)))

	got, err := g.Generate(ctx, e)
	require.NoError(t, err)
	defer got.Close()

	steps := got.(*fsttest.Transducer).Steps()
	require.Len(t, steps, 6)
	assert.True(t, strings.HasPrefix(steps[0], "compile [ [ [%.]:0 ]"))
	assert.True(t, strings.HasPrefix(steps[1], "compose {compile [ [ [%>]"))
	assert.Equal(t, 2, strings.Count(steps[1], "disjunct"))
	assert.True(t, strings.HasSuffix(steps[1], "; star}"))
	assert.Equal(t, "compose {compile "+regex.Render(penalty.AtMostN(sym.Insertion(), 2))+"}", steps[2])
	assert.True(t, strings.HasPrefix(steps[3], "compose {compile 0 (->) "))
	assert.True(t, strings.HasSuffix(steps[3], "; minimize}"))
	assert.Equal(t, "compose {compile ?* -> [%#] ... [%#] || .#. _ .#.}", steps[4])
	assert.Equal(t, "minimize", steps[5])

	assert.Equal(t, 1, e.Live(), "intermediate transducers must be released")
}

func TestMorphGen_GenerateCompileError(t *testing.T) {
	e := fsttest.NewEngine()
	e.CompileErr = func(recipe string) error {
		if strings.Contains(recipe, "#") {
			return assert.AnError
		}
		return nil
	}
	_, err := NewMorphGen(symbols.Default(), tiny()).Generate(context.Background(), e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "word boundaries")
	assert.Zero(t, e.Live())
}

func TestRandomSyllabifier(t *testing.T) {
	s := NewRandomSyllabifier(symbols.Default())
	c := `[ [%>] [ \[%<] ]+ [%<] [ \[%>] ]+ ]`
	assert.Equal(t, "0 (->) [ [%.] | [%,] ] || _ "+c+" , "+c+" _", regex.Render(s.Recipe()))

	e := fsttest.NewEngine()
	got, err := s.Syllabify(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, "minimize", got.(*fsttest.Transducer).Steps()[1])
}

func TestNuclearSyllabifier(t *testing.T) {
	sym := symbols.Default()
	v := "[ " + outPrefix + " [%a] ]"
	c := "[ " + outPrefix + " [%p] ]"

	t.Run("plain", func(t *testing.T) {
		got := regex.Render(NewNuclearSyllabifier(sym, tiny()).Recipe())
		want := v + " -> [%,] ... [%,]" +
			" .o. 0 -> [%.] \\/ [ [%,] " + c + "* ] _ [ " + c + "* [%,] ]" +
			" .o. ?* -> [%.] ... [%.] || .#. _ .#."
		assert.Equal(t, want, got)
	})

	t.Run("fill onset", func(t *testing.T) {
		got := regex.Render(NewNuclearSyllabifier(sym, tiny(), FillOnset()).Recipe())
		assert.True(t, strings.HasSuffix(got, " .o. [ ~[ $[ ? [%.] [%,] ] ] ]"), got)
		assert.NotContains(t, got, "$[ "+c)
	})

	t.Run("sonority", func(t *testing.T) {
		scale := []phoneme.Level{{"+syllabic"}, {"+approximant"}, {"-continuant"}}
		got := regex.Render(NewNuclearSyllabifier(sym, tiny(), SonorityFilter(scale...)).Recipe())
		// the approximant level holds only the nucleus and is skipped
		want := "[ [%.] [ " + c + "* [%,] " + v + " [%,] " + c + "* [%.] ]+ ]"
		assert.True(t, strings.HasSuffix(got, " .o. "+want), got)
	})
}

func TestNuclearSyllabifier_SonorityLayers(t *testing.T) {
	inv := phoneme.New(phoneme.Spec{Phonemes: map[string]map[string]string{
		"a": {"syllabic": "+"},
		"l": {"syllabic": "-", "lateral": "+"},
		"t": {"syllabic": "-", "lateral": "-"},
	}})
	scale := []phoneme.Level{{"+syllabic"}, {"+lateral"}, {"-lateral"}}
	got := regex.Render(NewNuclearSyllabifier(symbols.Default(), inv, SonorityFilter(scale...)).Recipe())

	l := "[ " + outPrefix + " [%l] ]*"
	tt := "[ " + outPrefix + " [%t] ]*"
	v := "[ " + outPrefix + " [%a] ]"
	assert.True(t, strings.HasSuffix(got, "[ [%.] [ "+tt+" "+l+" [%,] "+v+" [%,] "+l+" "+tt+" [%.] ]+ ]"), got)
}
