package regex

import (
	"strconv"
	"strings"
)

// Kind identifies the type of a recipe node.
type Kind int

const (
	KindSymbol Kind = iota
	KindRaw
	KindAny
	KindEpsilon
	KindBoundary
	KindNull
	KindSeq
	KindAlt
	KindCross
	KindRepeat
	KindOptional
	KindPrefix
	KindIgnore
	KindMinus
	KindPriority
	KindRule
	KindCompose
)

// Node is a recipe syntax tree node.
type Node interface {
	Kind() Kind
	write(b *strings.Builder, top bool)
}

// Symbol is a literal string matched character by character.
type Symbol struct {
	Text string
}

func (n *Symbol) Kind() Kind { return KindSymbol }

func (n *Symbol) write(b *strings.Builder, _ bool) {
	if n.Text == "" {
		b.WriteString("0")
		return
	}
	b.WriteString(Escape(n.Text))
}

// Raw is pre-rendered regex text supplied by a caller or read back from disk.
type Raw struct {
	Text string
}

func (n *Raw) Kind() Kind { return KindRaw }

func (n *Raw) write(b *strings.Builder, top bool) {
	if top {
		b.WriteString(n.Text)
		return
	}
	b.WriteString("[ ")
	b.WriteString(n.Text)
	b.WriteString(" ]")
}

type atom struct {
	kind Kind
	text string
}

func (n *atom) Kind() Kind { return n.kind }

func (n *atom) write(b *strings.Builder, _ bool) { b.WriteString(n.text) }

// Sequence is concatenation.
type Sequence struct {
	Items []Node
}

func (n *Sequence) Kind() Kind { return KindSeq }

func (n *Sequence) write(b *strings.Builder, top bool) {
	switch len(n.Items) {
	case 0:
		b.WriteString("0")
	case 1:
		n.Items[0].write(b, top)
	default:
		b.WriteString("[ ")
		for i, it := range n.Items {
			if i > 0 {
				b.WriteString(" ")
			}
			it.write(b, false)
		}
		b.WriteString(" ]")
	}
}

// Union is disjunction. An empty Union is the empty language.
type Union struct {
	Items []Node
}

func (n *Union) Kind() Kind { return KindAlt }

func (n *Union) write(b *strings.Builder, top bool) {
	switch len(n.Items) {
	case 0:
		b.WriteString(nullText)
	case 1:
		n.Items[0].write(b, top)
	default:
		b.WriteString("[ ")
		for i, it := range n.Items {
			if i > 0 {
				b.WriteString(" | ")
			}
			it.write(b, false)
		}
		b.WriteString(" ]")
	}
}

// Cross maps the upper language onto the lower language.
type Cross struct {
	Upper, Lower Node
}

func (n *Cross) Kind() Kind { return KindCross }

func (n *Cross) write(b *strings.Builder, _ bool) {
	b.WriteString("[ ")
	n.Upper.write(b, false)
	b.WriteString(":")
	n.Lower.write(b, false)
	b.WriteString(" ]")
}

// RepeatOp selects a repetition operator.
type RepeatOp int

const (
	RepeatStar RepeatOp = iota
	RepeatPlus
	RepeatExactly
	RepeatMoreThan
	RepeatFewerThan
)

// Repeat applies a postfix repetition operator.
type Repeat struct {
	Body  Node
	Op    RepeatOp
	Count int
}

func (n *Repeat) Kind() Kind { return KindRepeat }

func (n *Repeat) write(b *strings.Builder, _ bool) {
	n.Body.write(b, false)
	switch n.Op {
	case RepeatStar:
		b.WriteString("*")
	case RepeatPlus:
		b.WriteString("+")
	case RepeatExactly:
		b.WriteString("^" + strconv.Itoa(n.Count))
	case RepeatMoreThan:
		b.WriteString("^>" + strconv.Itoa(n.Count))
	case RepeatFewerThan:
		b.WriteString("^<" + strconv.Itoa(n.Count))
	}
}

// Optional matches its body or nothing.
type Optional struct {
	Body Node
}

func (n *Optional) Kind() Kind { return KindOptional }

func (n *Optional) write(b *strings.Builder, _ bool) {
	b.WriteString("( ")
	n.Body.write(b, false)
	b.WriteString(" )")
}

// PrefixOp selects a prefix operator.
type PrefixOp string

const (
	PrefixComplement     PrefixOp = "~"
	PrefixTermComplement PrefixOp = `\`
	PrefixContains       PrefixOp = "$"
)

// Prefix applies a prefix operator.
type Prefix struct {
	Op   PrefixOp
	Body Node
}

func (n *Prefix) Kind() Kind { return KindPrefix }

func (n *Prefix) write(b *strings.Builder, _ bool) {
	b.WriteString("[ ")
	b.WriteString(string(n.Op))
	n.Body.write(b, false)
	b.WriteString(" ]")
}

// Ignore matches Body with Ignored freely interspersed.
type Ignore struct {
	Body, Ignored Node
}

func (n *Ignore) Kind() Kind { return KindIgnore }

func (n *Ignore) write(b *strings.Builder, _ bool) {
	b.WriteString("[ ")
	n.Body.write(b, false)
	b.WriteString(" / ")
	n.Ignored.write(b, false)
	b.WriteString(" ]")
}

// Minus is language subtraction.
type Minus struct {
	Left, Right Node
}

func (n *Minus) Kind() Kind { return KindMinus }

func (n *Minus) write(b *strings.Builder, _ bool) {
	b.WriteString("[ ")
	n.Left.write(b, false)
	b.WriteString(" - ")
	n.Right.write(b, false)
	b.WriteString(" ]")
}

// Priority is priority union: Left where defined, Right elsewhere.
type Priority struct {
	Left, Right Node
}

func (n *Priority) Kind() Kind { return KindPriority }

func (n *Priority) write(b *strings.Builder, _ bool) {
	b.WriteString("[ ")
	n.Left.write(b, false)
	b.WriteString(" .P. ")
	n.Right.write(b, false)
	b.WriteString(" ]")
}

// Compose chains relations left to right.
type Compose struct {
	Items []Node
}

func (n *Compose) Kind() Kind { return KindCompose }

func (n *Compose) write(b *strings.Builder, top bool) {
	if len(n.Items) == 1 {
		n.Items[0].write(b, top)
		return
	}
	if !top {
		b.WriteString("[ ")
	}
	for i, it := range n.Items {
		if i > 0 {
			b.WriteString(" .o. ")
		}
		it.write(b, true)
	}
	if !top {
		b.WriteString(" ]")
	}
}

const nullText = "~[?*]"
