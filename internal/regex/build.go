package regex

import "strings"

// Render returns the HFST regexp text of a recipe.
func Render(n Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.write(&b, true)
	return b.String()
}

// Escape renders a literal as a bracketed sequence of escaped characters,
// e.g. "t)S" becomes "[%t%)%S]".
func Escape(s string) string {
	var b strings.Builder
	b.WriteString("[")
	for _, r := range s {
		b.WriteString("%")
		b.WriteRune(r)
	}
	b.WriteString("]")
	return b.String()
}

// Sym matches a literal string.
func Sym(s string) Node { return &Symbol{Text: s} }

// Text embeds already rendered regex text.
func Text(s string) Node { return &Raw{Text: s} }

// Any matches any single symbol.
func Any() Node { return &atom{kind: KindAny, text: "?"} }

// Universal matches any string.
func Universal() Node { return &atom{kind: KindAny, text: "?*"} }

// Eps is the empty string.
func Eps() Node { return &atom{kind: KindEpsilon, text: "0"} }

// Boundary is the edge-of-string marker usable in rule contexts.
func Boundary() Node { return &atom{kind: KindBoundary, text: ".#."} }

// Null is the empty language.
func Null() Node { return &atom{kind: KindNull, text: nullText} }

// Seq concatenates the non-nil items.
func Seq(items ...Node) Node { return &Sequence{Items: compact(items)} }

// Alt disjoins the non-nil items.
func Alt(items ...Node) Node { return &Union{Items: compact(items)} }

// Syms is the disjunction of escaped literals.
func Syms(ss ...string) Node {
	items := make([]Node, 0, len(ss))
	for _, s := range ss {
		items = append(items, Sym(s))
	}
	return &Union{Items: items}
}

// CrossProduct maps upper onto lower.
func CrossProduct(upper, lower Node) Node { return &Cross{Upper: upper, Lower: lower} }

// Delete maps n to nothing.
func Delete(n Node) Node { return &Cross{Upper: n, Lower: Eps()} }

// Insert maps nothing to n.
func Insert(n Node) Node { return &Cross{Upper: Eps(), Lower: n} }

// Star is Kleene closure.
func Star(n Node) Node { return &Repeat{Body: n, Op: RepeatStar} }

// Plus is one or more repetitions.
func Plus(n Node) Node { return &Repeat{Body: n, Op: RepeatPlus} }

// Power is exactly k repetitions.
func Power(n Node, k int) Node { return &Repeat{Body: n, Op: RepeatExactly, Count: k} }

// MoreThan is more than k repetitions.
func MoreThan(n Node, k int) Node { return &Repeat{Body: n, Op: RepeatMoreThan, Count: k} }

// FewerThan is fewer than k repetitions.
func FewerThan(n Node, k int) Node { return &Repeat{Body: n, Op: RepeatFewerThan, Count: k} }

// Opt matches n or nothing.
func Opt(n Node) Node { return &Optional{Body: n} }

// Not is the complement language.
func Not(n Node) Node { return &Prefix{Op: PrefixComplement, Body: n} }

// Other is any single symbol not in n.
func Other(n Node) Node { return &Prefix{Op: PrefixTermComplement, Body: n} }

// Contains matches strings containing n.
func Contains(n Node) Node { return &Prefix{Op: PrefixContains, Body: n} }

// IgnoreIn matches body with any of ignored interspersed. Nil entries are
// skipped; with nothing to ignore body is returned unchanged.
func IgnoreIn(body Node, ignored ...Node) Node {
	ignored = compact(ignored)
	if len(ignored) == 0 {
		return body
	}
	return &Ignore{Body: body, Ignored: &Union{Items: ignored}}
}

// Subtract is left minus right.
func Subtract(left, right Node) Node { return &Minus{Left: left, Right: right} }

// PriorityUnion is left .P. right.
func PriorityUnion(left, right Node) Node { return &Priority{Left: left, Right: right} }

// Chain composes the non-nil items.
func Chain(items ...Node) Node { return &Compose{Items: compact(items)} }

// Replace builds "target op replacement".
func Replace(target Node, op RuleOp, replacement Node, contexts ...Context) *Rule {
	return &Rule{Target: target, Op: op, Replacement: replacement, Contexts: contexts}
}

// Markup builds "target op before ... after".
func Markup(target Node, op RuleOp, before, after Node, contexts ...Context) *Rule {
	return &Rule{Target: target, Op: op, Markup: true, Before: before, After: after, Contexts: contexts}
}

// In switches the rule's contexts to the given mode.
func (n *Rule) In(mode ContextMode) *Rule {
	n.Mode = mode
	return n
}

// Between is a rule context; either side may be nil.
func Between(left, right Node) Context { return Context{Left: left, Right: right} }

func compact(items []Node) []Node {
	out := items[:0:0]
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}
	return out
}
