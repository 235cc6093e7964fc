//go:build integration

package grammar

import (
	"context"
	"os/exec"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/otgrammar/internal/fst/hfst"
	"github.com/fyrsmithlabs/otgrammar/internal/symbols"
	"github.com/fyrsmithlabs/otgrammar/internal/tableau"
)

func requireHFST(t *testing.T) {
	t.Helper()
	for _, tool := range []string{"hfst-regexp2fst", "hfst-compose", "hfst-lookup", "hfst-minimize"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not on PATH", tool)
		}
	}
}

func TestHawaiian_EndToEnd(t *testing.T) {
	requireHFST(t)
	ctx := context.Background()

	g, err := Load("testdata/hawaiian.yaml")
	require.NoError(t, err)
	c, err := Compile(g, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	e, err := hfst.New(hfst.WithWorkDir(t.TempDir()), hfst.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer e.Close()

	tab, err := c.Tableau(ctx, e)
	require.NoError(t, err)
	defer tab.Close()
	require.NoError(t, tab.Build(ctx))

	res, err := tab.Run(ctx, "pa", "", tableau.DefaultResults)
	require.NoError(t, err)
	assert.True(t, res.Wins, "faithful pa should win, other winners: %v", res.Winners)
	assert.False(t, res.TooMany)

	res, err = tab.Run(ctx, "pak", "", tableau.DefaultResults)
	require.NoError(t, err)
	assert.False(t, res.Wins, "coda k should not survive")

	tr, err := tab.Trace(ctx, "pa", []string{"pa"}, tableau.DefaultResults)
	require.NoError(t, err)
	require.Len(t, tr.Steps, len(c.Constraints)+1)
	last := tr.Steps[len(tr.Steps)-1]
	assert.NotEmpty(t, last.Survivors.Traced)

	base := t.TempDir() + "/hawaiian"
	require.NoError(t, tab.Save(ctx, base))
	loaded, err := tableau.Load(ctx, e, base+tableau.TableauExt, base+tableau.HFSTExt)
	require.NoError(t, err)
	defer loaded.Close()

	again, err := loaded.Run(ctx, "pa", "", tableau.DefaultResults)
	require.NoError(t, err)
	assert.True(t, again.Wins)
}

func buildGrammar(t *testing.T, path string) *tableau.Tableau {
	t.Helper()
	ctx := context.Background()

	g, err := Load(path)
	require.NoError(t, err)
	c, err := Compile(g, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	e, err := hfst.New(hfst.WithWorkDir(t.TempDir()), hfst.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	tab, err := c.Tableau(ctx, e)
	require.NoError(t, err)
	t.Cleanup(func() { tab.Close() })
	require.NoError(t, tab.Build(ctx))
	return tab
}

func TestScenario_FaithfulWinsOverInsertion(t *testing.T) {
	requireHFST(t)
	ctx := context.Background()
	tab := buildGrammar(t, "testdata/scenario.yaml")

	res, err := tab.Run(ctx, "pa", "", tableau.DefaultResults)
	require.NoError(t, err)
	assert.True(t, res.Wins, "pa should survive the final stage, other winners: %v", res.Winners)
	// Vowel changes are not penalized by ID(cons); nothing else may tie.
	cv := regexp.MustCompile(`^p[aeiou]$`)
	for _, w := range res.Winners {
		assert.Regexp(t, cv, w)
	}

	inserted := []string{"pah", "hpa", "pak", "kpa", "pal"}
	tr, err := tab.Trace(ctx, "pa", append([]string{"pa"}, inserted...), 5000)
	require.NoError(t, err)
	require.Len(t, tr.Steps, 4)

	dep := tr.Steps[3]
	assert.Equal(t, "Dep(IO)", dep.Constraint)
	require.Equal(t, tableau.Exact, dep.Fatalities.Status)
	require.Equal(t, tableau.Exact, dep.Survivors.Status)
	assert.NotEmpty(t, dep.Fatalities.Traced, "an inserted consonant should be eliminated by Dep(IO)")
	for _, f := range dep.Fatalities.Traced {
		assert.NotEqual(t, "pa", symbols.Normalize(f))
	}
	require.Len(t, dep.Survivors.Traced, 1)
	assert.Equal(t, "pa", symbols.Normalize(dep.Survivors.Traced[0]))
}
