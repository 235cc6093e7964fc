package grammar

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format is a grammar file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var (
	// ErrUnknownFormat is returned for files that are neither YAML nor TOML.
	ErrUnknownFormat = errors.New("unknown grammar format")

	// ErrUnknownKind is returned for a constraint kind no builder exists for.
	ErrUnknownKind = errors.New("unknown constraint kind")

	// ErrInvalidGrammar wraps validation failures.
	ErrInvalidGrammar = errors.New("invalid grammar")
)

// keyDelim separates koanf key paths. Phoneme symbols may contain dots, so
// the usual "." would split them.
const keyDelim = "\x1f"

var kinds = []string{
	KindMarkedness, KindMarkednessBundle,
	KindFaithfulness, KindFaithfulnessBundle,
	KindMaximality, KindDependency,
	KindGradient, KindHorizontalGradient,
	KindComplexOnset, KindComplexCoda,
	KindAssimilation, KindRaw,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Load reads and validates a grammar file.
func Load(path string) (*Grammar, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := Parse(data, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse decodes and validates a grammar document.
func Parse(data []byte, f Format) (*Grammar, error) {
	var g Grammar
	switch f {
	case FormatYAML:
		k := koanf.NewWithConf(koanf.Conf{Delim: keyDelim})
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		if err := k.Unmarshal("", &g); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &g)
		if err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidGrammar, undecoded)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err := Validate(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Validate checks field constraints and constraint kinds.
func Validate(g *Grammar) error {
	if err := validate.Struct(g); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGrammar, err)
	}
	for i, c := range g.Constraints {
		if !slices.Contains(kinds, c.Kind) {
			return fmt.Errorf("constraint %d: %w: %q", i+1, ErrUnknownKind, c.Kind)
		}
	}
	return nil
}
