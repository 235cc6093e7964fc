package regex

import "strings"

// RuleOp is a rewrite operator.
type RuleOp string

const (
	// Obligatory replacement.
	Obligatory RuleOp = "->"
	// OptionalReplace may or may not apply at each site.
	OptionalReplace RuleOp = "(->)"
	// Shortest is left-to-right shortest-match replacement.
	Shortest RuleOp = "@>"
)

// ContextMode tells on which side of the relation contexts are matched.
type ContextMode string

const (
	// Upper matches both contexts on the input side.
	Upper ContextMode = "||"
	// Lower matches both contexts on the output side.
	Lower ContextMode = `\/`
)

// Context is one left/right environment of a rule. Nil sides are omitted.
type Context struct {
	Left, Right Node
}

// Rule is a rewrite rule. Either Replacement is set, or the rule is a
// markup rule inserting Before and After around every Target match.
type Rule struct {
	Target      Node
	Op          RuleOp
	Replacement Node
	Markup      bool
	Before      Node
	After       Node
	Mode        ContextMode
	Contexts    []Context
}

func (n *Rule) Kind() Kind { return KindRule }

func (n *Rule) write(b *strings.Builder, top bool) {
	if !top {
		b.WriteString("[ ")
	}
	n.Target.write(b, false)
	b.WriteString(" ")
	b.WriteString(string(n.Op))
	b.WriteString(" ")
	if n.Markup {
		if n.Before != nil {
			n.Before.write(b, false)
			b.WriteString(" ")
		}
		b.WriteString("...")
		if n.After != nil {
			b.WriteString(" ")
			n.After.write(b, false)
		}
	} else {
		n.Replacement.write(b, false)
	}
	if len(n.Contexts) > 0 {
		mode := n.Mode
		if mode == "" {
			mode = Upper
		}
		b.WriteString(" ")
		b.WriteString(string(mode))
		for i, c := range n.Contexts {
			if i > 0 {
				b.WriteString(" ,")
			}
			if c.Left != nil {
				b.WriteString(" ")
				c.Left.write(b, false)
			}
			b.WriteString(" _")
			if c.Right != nil {
				b.WriteString(" ")
				c.Right.write(b, false)
			}
		}
	}
	if !top {
		b.WriteString(" ]")
	}
}
