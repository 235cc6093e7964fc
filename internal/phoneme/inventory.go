// Package phoneme holds a feature-annotated phoneme inventory.
//
// An Inventory answers the questions constraint and generator construction
// ask: which phonemes carry a set of features, how a feature bundle
// partitions the inventory, and how the inventory ranks on a sonority scale.
// Unknown features are logged and treated as matching nothing.
package phoneme

import (
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Spec is the raw feature table an Inventory is built from.
type Spec struct {
	// Phonemes maps each phoneme to its feature values. A value of "+" or
	// "-" specifies the feature; anything else leaves it unspecified.
	Phonemes map[string]map[string]string `koanf:"phonemes" toml:"phonemes" validate:"required,min=1"`

	// Groups names bundles of related features, e.g. "backness" covering
	// "front" and "back". Every feature is also a bundle of its own.
	Groups map[string][]string `koanf:"groups" toml:"groups"`
}

// Inventory is a read-only phoneme inventory.
type Inventory struct {
	alphabet []string
	sets     map[string]map[string]struct{}
	bundles  map[string][]string
	logger   *zap.Logger
}

// Option configures an Inventory.
type Option func(*Inventory)

// WithLogger sets the logger used for unknown-feature warnings.
func WithLogger(l *zap.Logger) Option {
	return func(inv *Inventory) {
		if l != nil {
			inv.logger = l
		}
	}
}

// New builds an inventory from spec.
func New(spec Spec, opts ...Option) *Inventory {
	inv := &Inventory{
		sets:    map[string]map[string]struct{}{},
		bundles: map[string][]string{},
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(inv)
	}

	features := map[string]struct{}{}
	for p, vals := range spec.Phonemes {
		inv.alphabet = append(inv.alphabet, p)
		for f, v := range vals {
			features[f] = struct{}{}
			if v != "+" && v != "-" {
				continue
			}
			key := v + f
			if inv.sets[key] == nil {
				inv.sets[key] = map[string]struct{}{}
			}
			inv.sets[key][p] = struct{}{}
		}
	}
	slices.Sort(inv.alphabet)

	for f := range features {
		inv.bundles[f] = []string{"+" + f, "-" + f}
	}
	for g, members := range spec.Groups {
		var vals []string
		for _, f := range members {
			vals = append(vals, "+"+f, "-"+f)
		}
		slices.Sort(vals)
		inv.bundles[g] = slices.Compact(append(inv.bundles[g], vals...))
	}
	return inv
}

// Alphabet returns every phoneme in sorted order.
func (inv *Inventory) Alphabet() []string {
	return slices.Clone(inv.alphabet)
}

// Phonemes returns the phonemes carrying every given signed feature, e.g.
// "+syllabic". An unknown feature logs a warning and empties the result.
// With no features the whole alphabet is returned.
func (inv *Inventory) Phonemes(features ...string) []string {
	set := inv.match(features)
	return sorted(set)
}

func (inv *Inventory) match(features []string) map[string]struct{} {
	set := toSet(inv.alphabet)
	for _, f := range features {
		members, ok := inv.sets[f]
		if !ok {
			inv.logger.Warn("unknown feature", zap.String("feature", f))
			return map[string]struct{}{}
		}
		maps.DeleteFunc(set, func(p string, _ struct{}) bool {
			_, keep := members[p]
			return !keep
		})
	}
	return set
}

// FeatureBundles resolves features, each either a signed feature or a bundle
// name, into one phoneme set per signed feature. Bundles expand recursively.
// Only signed features starting with value are kept, so "+" restricts the
// result to positive values. When filter is given every set is intersected
// with the phonemes matching it. An unknown signed feature is logged and
// contributes an empty set; an unknown bundle name is logged and skipped.
func (inv *Inventory) FeatureBundles(features []string, value string, filter ...string) [][]string {
	allowed := toSet(inv.alphabet)
	if len(filter) > 0 {
		allowed = inv.match(filter)
	}
	var out [][]string
	inv.addBundles(features, value, allowed, &out, map[string]bool{})
	return out
}

func (inv *Inventory) addBundles(features []string, value string, allowed map[string]struct{}, out *[][]string, visiting map[string]bool) {
	for _, f := range features {
		if members, ok := inv.sets[f]; ok {
			if !strings.HasPrefix(f, value) {
				continue
			}
			var set []string
			for p := range members {
				if _, ok := allowed[p]; ok {
					set = append(set, p)
				}
			}
			slices.Sort(set)
			*out = append(*out, set)
			continue
		}
		if sub, ok := inv.bundles[f]; ok {
			if visiting[f] {
				continue
			}
			visiting[f] = true
			inv.addBundles(sub, value, allowed, out, visiting)
			visiting[f] = false
			continue
		}
		if isSigned(f) {
			inv.logger.Warn("unknown feature", zap.String("feature", f))
			if strings.HasPrefix(f, value) {
				*out = append(*out, []string{})
			}
			continue
		}
		inv.logger.Warn("unknown feature bundle, ignoring it", zap.String("bundle", f))
	}
}

// Level is one step of a sonority scale: the phonemes matching all of its
// features.
type Level []string

// DefaultSonorityScale ranks phonemes from most to least sonorous.
var DefaultSonorityScale = []Level{
	{"+syllabic"},
	{"+approximant", "-liquid"},
	{"+rhotic"},
	{"+lateral"},
	{"+nasal"},
	{"+continuant", "-affricate"},
	{"+affricate"},
	{"-continuant"},
}

// SonorityScale partitions the inventory along scale, most sonorous first.
// Each phoneme lands on the first level it matches. Phonemes matching no
// level are returned as uncovered and logged.
func (inv *Inventory) SonorityScale(scale ...Level) (levels [][]string, uncovered []string) {
	if len(scale) == 0 {
		scale = DefaultSonorityScale
	}
	rest := toSet(inv.alphabet)
	for _, lvl := range scale {
		var level []string
		for p := range inv.match(lvl) {
			if _, ok := rest[p]; ok {
				level = append(level, p)
				delete(rest, p)
			}
		}
		slices.Sort(level)
		levels = append(levels, level)
	}
	uncovered = sorted(rest)
	if len(uncovered) > 0 {
		inv.logger.Warn("phonemes not covered by sonority scale", zap.Strings("phonemes", uncovered))
	}
	return levels, uncovered
}

// Restrict returns a sub-inventory holding only the given phonemes. Feature
// bundles are kept. Phonemes absent from inv are logged and skipped.
func (inv *Inventory) Restrict(phonemes ...string) *Inventory {
	keep := map[string]struct{}{}
	for _, p := range phonemes {
		if !slices.Contains(inv.alphabet, p) {
			inv.logger.Warn("phoneme not in inventory", zap.String("phoneme", p))
			continue
		}
		keep[p] = struct{}{}
	}
	sub := &Inventory{
		alphabet: sorted(keep),
		sets:     map[string]map[string]struct{}{},
		bundles:  maps.Clone(inv.bundles),
		logger:   inv.logger,
	}
	for f, members := range inv.sets {
		for p := range members {
			if _, ok := keep[p]; !ok {
				continue
			}
			if sub.sets[f] == nil {
				sub.sets[f] = map[string]struct{}{}
			}
			sub.sets[f][p] = struct{}{}
		}
	}
	return sub
}

func isSigned(f string) bool {
	return len(f) > 1 && (f[0] == '+' || f[0] == '-')
}

func toSet(ss []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		m[s] = struct{}{}
	}
	return m
}

func sorted(m map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(m))
}
