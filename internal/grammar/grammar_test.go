package grammar

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/otgrammar/internal/constraint"
	"github.com/fyrsmithlabs/otgrammar/internal/fst/fsttest"
	"github.com/fyrsmithlabs/otgrammar/internal/gen"
	"github.com/fyrsmithlabs/otgrammar/internal/penalty"
	"github.com/fyrsmithlabs/otgrammar/internal/regex"
	"github.com/fyrsmithlabs/otgrammar/internal/scope"
	"github.com/fyrsmithlabs/otgrammar/internal/symbols"
)

func loadMini(t *testing.T) *Grammar {
	t.Helper()
	g, err := Load(filepath.Join("testdata", "mini.yaml"))
	require.NoError(t, err)
	return g
}

func TestLoad_YAML(t *testing.T) {
	g := loadMini(t)

	assert.Equal(t, "mini", g.Name)
	assert.Equal(t, "counting", g.Method)
	assert.Len(t, g.Inventory.Phonemes, 5)
	assert.Equal(t, "+", g.Inventory.Phonemes["b"]["voice"])
	assert.Equal(t, []string{"voice"}, g.Inventory.Groups["laryngeal"])
	assert.Equal(t, []string{"a", "i", "p"}, g.Generator.Output)
	assert.Equal(t, 1, g.Generator.MaxInsertions)
	assert.Equal(t, SyllabifierNuclear, g.Generator.Syllabifier.Kind)
	assert.True(t, g.Generator.Syllabifier.FillOnset)

	require.Len(t, g.Constraints, 6)
	assert.Equal(t, KindMarkedness, g.Constraints[0].Kind)
	assert.True(t, g.Constraints[0].Violation.All)
	assert.Equal(t, []string{"a", "i", "p"}, g.Constraints[0].Violation.Except)
	require.NotNil(t, g.Constraints[2].Precision)
	assert.Equal(t, 2, *g.Constraints[2].Precision)
	assert.Nil(t, g.Constraints[3].Precision)
	assert.Equal(t, "[%a] -> [%*]", g.Constraints[5].Recipe)
}

func TestLoad_TOMLMatchesYAML(t *testing.T) {
	fromTOML, err := Load(filepath.Join("testdata", "mini.toml"))
	require.NoError(t, err)

	if diff := cmp.Diff(loadMini(t), fromTOML, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("TOML grammar differs from YAML (-yaml +toml):\n%s", diff)
	}
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"g.yaml":   FormatYAML,
		"g.YML":    FormatYAML,
		"a/b.toml": FormatTOML,
	} {
		f, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, f, path)
	}
	_, err := FormatOf("g.json")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParse_Invalid(t *testing.T) {
	const inventory = "inventory:\n  phonemes:\n    a: {syllabic: \"+\"}\n"
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{"no constraints", inventory, ErrInvalidGrammar},
		{"no inventory", "constraints:\n  - kind: maximality\n", ErrInvalidGrammar},
		{"bad method", inventory + "method: ranking\nconstraints:\n  - kind: maximality\n", ErrInvalidGrammar},
		{"raw without recipe", inventory + "constraints:\n  - kind: raw\n", ErrInvalidGrammar},
		{"bad bundle value", inventory + "constraints:\n  - kind: faithfulness_bundle\n    value: x\n", ErrInvalidGrammar},
		{"negative precision", inventory + "constraints:\n  - kind: maximality\n    precision: -1\n", ErrInvalidGrammar},
		{"bad syllabifier", inventory + "generator:\n  syllabifier: {kind: moraic}\nconstraints:\n  - kind: maximality\n", ErrInvalidGrammar},
		{"unknown kind", inventory + "constraints:\n  - kind: alignment\n", ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatYAML)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_TOMLUnknownKey(t *testing.T) {
	doc := "colour = \"red\"\n[inventory.phonemes]\na = { syllabic = \"+\" }\n[[constraints]]\nkind = \"maximality\"\n"
	_, err := Parse([]byte(doc), FormatTOML)
	assert.ErrorIs(t, err, ErrInvalidGrammar)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("constraints: [unclosed\n"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestCompile(t *testing.T) {
	c, err := Compile(loadMini(t))
	require.NoError(t, err)

	assert.Equal(t, "mini", c.Name)
	assert.Equal(t, penalty.Counting, c.Method)
	assert.Equal(t, []string{"a", "b", "f", "i", "p"}, c.Inventory.Alphabet())
	assert.Equal(t, []string{"a", "i", "p"}, c.Output.Alphabet())
	assert.IsType(t, &gen.NuclearSyllabifier{}, c.Generator.Syllabifier())

	names := make([]string, len(c.Constraints))
	for i, con := range c.Constraints {
		names[i] = con.Name()
	}
	assert.Equal(t, []string{"*foreign", "ID(voice)", "Max(IO)", "NoCoda", "Dep(IO)", "R"}, names)

	b := constraint.NewBuilder(symbols.Default())
	foreign, err := b.Markedness(constraint.Phonemes("b", "f"), constraint.WithName("*foreign"))
	require.NoError(t, err)
	assert.Equal(t, regex.Render(foreign.Recipe()), regex.Render(c.Constraints[0].Recipe()))

	voice := c.Constraints[1]
	assert.Equal(t, constraint.KindBundle, voice.Kind())
	assert.Equal(t, constraint.DefaultBundlePrecision, voice.Precision())
	require.Len(t, voice.Children(), 2)
	assert.Equal(t, "ID(voice)[0]", voice.Children()[0].Name())

	assert.Equal(t, 2, c.Constraints[2].Precision())
	assert.Equal(t, constraint.DefaultStructurePrecision, c.Constraints[3].Precision())
	assert.Equal(t, "R\t5\t[%a] -> [%*]", c.Constraints[5].String())
}

func TestCompile_Patterns(t *testing.T) {
	g := loadMini(t)
	g.Constraints = []ConstraintSpec{{
		Kind:  KindMarkedness,
		Name:  "*VpV",
		Scope: "syllable",
		Violation: Pattern{
			Features: []string{"-voice"},
			Except:   []string{"f"},
		},
		Left:  Pattern{Sequence: []Pattern{{Phonemes: []string{"."}}, {Features: []string{"+syllabic"}}}},
		Right: Pattern{Regex: "[%a]"},
	}}

	c, err := Compile(g)
	require.NoError(t, err)

	b := constraint.NewBuilder(symbols.Default())
	want, err := b.Markedness(constraint.Phonemes("p"),
		constraint.WithName("*VpV"),
		constraint.WithScope(scope.Syllable),
		constraint.WithLeft(constraint.Sequence([]string{"."}, []string{"a", "i"})),
		constraint.WithRight(constraint.Regex("[%a]")))
	require.NoError(t, err)
	assert.Equal(t, regex.Render(want.Recipe()), regex.Render(c.Constraints[0].Recipe()))
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		spec    ConstraintSpec
		wantErr error
	}{
		{"markedness without violation", ConstraintSpec{Kind: KindMarkedness}, ErrMissingViolation},
		{"gradient without violation", ConstraintSpec{Kind: KindGradient}, ErrMissingViolation},
		{"unknown scope", ConstraintSpec{Kind: KindMaximality, Scope: "foot"}, scope.ErrUnknownScope},
		{"unknown kind", ConstraintSpec{Kind: "alignment"}, ErrUnknownKind},
		{"tab in name", ConstraintSpec{Kind: KindMaximality, Name: "Max\tIO"}, constraint.ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := loadMini(t)
			g.Constraints = []ConstraintSpec{tt.spec}
			_, err := Compile(g)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCompile_UnknownFeatureWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g := loadMini(t)
	g.Constraints = []ConstraintSpec{{Kind: KindMarkedness, Name: "*N", Violation: Pattern{Features: []string{"+nasal"}}}}

	c, err := Compile(g, WithLogger(zap.New(core)))
	require.NoError(t, err)
	require.Len(t, c.Constraints, 1)
	assert.Equal(t, 1, logs.FilterMessage("unknown feature").Len())
}

func TestCompile_Syllabifiers(t *testing.T) {
	g := loadMini(t)

	g.Generator.Syllabifier = Syllabifier{Kind: SyllabifierRandom}
	c, err := Compile(g)
	require.NoError(t, err)
	assert.IsType(t, &gen.RandomSyllabifier{}, c.Generator.Syllabifier())

	g.Generator.Syllabifier = Syllabifier{}
	c, err = Compile(g)
	require.NoError(t, err)
	assert.Nil(t, c.Generator.Syllabifier())

	g.Generator.Syllabifier = Syllabifier{Kind: SyllabifierNuclear, Sonority: true, Scale: [][]string{{"+syllabic"}, {"-syllabic"}}}
	c, err = Compile(g)
	require.NoError(t, err)
	assert.Contains(t, regex.Render(c.Generator.Syllabifier().Recipe()), "[%.] [ ")
}

func TestCompiled_Tableau(t *testing.T) {
	ctx := context.Background()
	c, err := Compile(loadMini(t))
	require.NoError(t, err)

	e := fsttest.NewEngine()
	tab, err := c.Tableau(ctx, e)
	require.NoError(t, err)
	defer tab.Close()

	assert.Equal(t, "mini", tab.Name())
	assert.Equal(t, penalty.Counting, tab.Method())
	assert.Len(t, tab.Constraints(), 6)
	require.NoError(t, tab.Build(ctx))
	assert.True(t, tab.Built())
}
