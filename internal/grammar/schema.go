package grammar

import "github.com/fyrsmithlabs/otgrammar/internal/phoneme"

// Constraint kinds.
const (
	KindMarkedness         = "markedness"
	KindMarkednessBundle   = "markedness_bundle"
	KindFaithfulness       = "faithfulness"
	KindFaithfulnessBundle = "faithfulness_bundle"
	KindMaximality         = "maximality"
	KindDependency         = "dependency"
	KindGradient           = "gradient"
	KindHorizontalGradient = "horizontal_gradient"
	KindComplexOnset       = "complex_onset"
	KindComplexCoda        = "complex_coda"
	KindAssimilation       = "assimilation"
	KindRaw                = "raw"
)

// Syllabifier kinds.
const (
	SyllabifierNone    = "none"
	SyllabifierRandom  = "random"
	SyllabifierNuclear = "nuclear"
)

// Grammar is the document read from a grammar file.
type Grammar struct {
	Name        string           `koanf:"name" toml:"name"`
	Method      string           `koanf:"method" toml:"method" validate:"omitempty,oneof=matching counting"`
	Inventory   phoneme.Spec     `koanf:"inventory" toml:"inventory"`
	Generator   Generator        `koanf:"generator" toml:"generator"`
	Constraints []ConstraintSpec `koanf:"constraints" toml:"constraints" validate:"required,min=1,dive"`
}

// Generator configures the candidate generator.
type Generator struct {
	// Output restricts output segments to these phonemes. Empty means the
	// whole inventory.
	Output []string `koanf:"output" toml:"output"`

	NoInsertion   bool   `koanf:"no_insertion" toml:"no_insertion"`
	NoDeletion    bool   `koanf:"no_deletion" toml:"no_deletion"`
	MaxInsertions int    `koanf:"max_insertions" toml:"max_insertions" validate:"gte=0"`
	Ignore        string `koanf:"ignore" toml:"ignore"`

	Syllabifier Syllabifier `koanf:"syllabifier" toml:"syllabifier"`
}

// Syllabifier selects and configures the syllabifier.
type Syllabifier struct {
	Kind      string `koanf:"kind" toml:"kind" validate:"omitempty,oneof=none random nuclear"`
	FillOnset bool   `koanf:"fill_onset" toml:"fill_onset"`

	// Sonority enables the sonority filter. Scale overrides the default
	// scale; each level lists the signed features its phonemes carry.
	Sonority bool       `koanf:"sonority" toml:"sonority"`
	Scale    [][]string `koanf:"scale" toml:"scale" validate:"dive,min=1"`
}

// Pattern selects phonemes: the listed phonemes plus those carrying every
// feature (or the whole inventory with All), minus the exceptions. Sequence
// instead gives one such selection per position, and Regex gives raw regex
// text.
type Pattern struct {
	All      bool      `koanf:"all" toml:"all"`
	Phonemes []string  `koanf:"phonemes" toml:"phonemes"`
	Features []string  `koanf:"features" toml:"features"`
	Except   []string  `koanf:"except" toml:"except"`
	Sequence []Pattern `koanf:"sequence" toml:"sequence"`
	Regex    string    `koanf:"regex" toml:"regex"`
}

// IsZero reports whether p selects nothing at all.
func (p Pattern) IsZero() bool {
	return !p.All && len(p.Phonemes) == 0 && len(p.Features) == 0 && len(p.Sequence) == 0 && p.Regex == ""
}

// ConstraintSpec describes one constraint.
type ConstraintSpec struct {
	Kind      string `koanf:"kind" toml:"kind" validate:"required"`
	Name      string `koanf:"name" toml:"name"`
	Precision *int   `koanf:"precision" toml:"precision" validate:"omitempty,gte=0"`
	Scope     string `koanf:"scope" toml:"scope"`

	Violation Pattern  `koanf:"violation" toml:"violation"`
	Left      Pattern  `koanf:"left" toml:"left"`
	Right     Pattern  `koanf:"right" toml:"right"`
	Ignore    []string `koanf:"ignore" toml:"ignore"`

	// Bundles names feature bundles or signed features for bundle kinds
	// and assimilation. Value keeps only "+" or "-" features; Filter
	// intersects every set with the phonemes carrying its features.
	Bundles []string `koanf:"bundles" toml:"bundles"`
	Value   string   `koanf:"value" toml:"value" validate:"omitempty,oneof=+ -"`
	Filter  []string `koanf:"filter" toml:"filter"`

	SingleSymbol  bool `koanf:"single_symbol" toml:"single_symbol"`
	RightOriented bool `koanf:"right_oriented" toml:"right_oriented"`
	MaxSize       *int `koanf:"max_size" toml:"max_size" validate:"omitempty,gte=0"`
	Depth         int  `koanf:"depth" toml:"depth" validate:"gte=0"`

	// Recipe is the regex text of a raw constraint.
	Recipe string `koanf:"recipe" toml:"recipe" validate:"required_if=Kind raw"`
}
