package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fyrsmithlabs/otgrammar/internal/constraint"
	"github.com/fyrsmithlabs/otgrammar/internal/tableau"
)

// Printer writes tableau results to a writer.
type Printer struct {
	w          io.Writer
	p          palette
	tracedOnly bool
}

type options struct {
	styled     bool
	tracedOnly bool
}

// Option configures a Printer.
type Option func(*options)

// Styled colors the output.
func Styled() Option { return func(o *options) { o.styled = true } }

// WithStyle colors the output when on is true.
func WithStyle(on bool) Option { return func(o *options) { o.styled = on } }

// TracedOnly omits untraced candidates from trace listings.
func TracedOnly() Option { return func(o *options) { o.tracedOnly = true } }

// New returns a Printer writing to w.
func New(w io.Writer, opts ...Option) *Printer {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	p := &Printer{w: w, p: plainPalette(), tracedOnly: o.tracedOnly}
	if o.styled {
		p.p = styledPalette(w)
	}
	return p
}

// Run writes the verdict for one input followed by the competing winners.
func (p *Printer) Run(res *tableau.RunResult) error {
	bw := bufio.NewWriter(p.w)
	desired := Quote(res.Desired, res.Regex)
	switch {
	case res.TooMany:
		fmt.Fprintln(bw, p.p.lose("Too many winners:"))
	case res.Wins && len(res.Winners) > 0:
		fmt.Fprintln(bw, p.p.win(desired+" wins")+", but there are also other winners:")
	case res.Wins:
		fmt.Fprintln(bw, p.p.win(desired+" wins!"))
	default:
		fmt.Fprintln(bw, p.p.lose(desired+" loses against:"))
	}
	for _, w := range res.Winners {
		fmt.Fprintln(bw, p.p.form(Quote(w, false)))
	}
	if res.TooMany {
		fmt.Fprintln(bw, p.p.dim("etc."))
	}
	return bw.Flush()
}

// Trace writes one block per step: the generator's candidates, then the
// fatalities and survivors of each constraint.
func (p *Printer) Trace(res *tableau.TraceResult) error {
	bw := bufio.NewWriter(p.w)
	for _, st := range res.Steps {
		if st.Index == 0 {
			fmt.Fprintln(bw, p.p.heading("0"))
			p.listing(bw, "Candidates", st.Candidates, res.N)
			continue
		}
		fmt.Fprintln(bw, p.p.heading(strconv.Itoa(st.Index)+" "+st.Constraint))
		p.listing(bw, "Fatalities", st.Fatalities, res.N)
		p.listing(bw, "Survivors", st.Survivors, res.N)
	}
	return bw.Flush()
}

func (p *Printer) listing(w io.Writer, label string, l tableau.Listing, n int) {
	head := p.p.label(label + ":")
	switch l.Status {
	case tableau.Infinite:
		fmt.Fprintln(w, head, p.p.dim("(infinite)"))
		return
	case tableau.Exceeds:
		fmt.Fprintln(w, head, p.p.dim("> "+strconv.Itoa(n)))
		return
	case tableau.AtMost:
		fmt.Fprintln(w, head, p.p.dim("<= "+strconv.Itoa(n)))
		return
	}
	fmt.Fprintln(w, head, strconv.Itoa(l.Count()))
	if l.Count() == 0 {
		return
	}
	fmt.Fprintln(w, "\ttraced:", p.forms(l.Traced, p.p.traced))
	if !p.tracedOnly {
		fmt.Fprintln(w, "\tuntraced:", p.forms(l.Untraced, p.p.form))
	}
}

func (p *Printer) forms(fs []string, style render) string {
	if len(fs) == 0 {
		return p.p.dim("(none)")
	}
	quoted := make([]string, len(fs))
	for i, f := range fs {
		quoted[i] = style(Quote(f, false))
	}
	return strings.Join(quoted, ", ")
}

// Inspect writes a table with one row per automaton.
func (p *Printer) Inspect(snaps []tableau.Snapshot) error {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tSTAGE\tKIND\tCONSTRAINT\tSTATES\tARCS\tAMBIGUITY")
	for _, s := range snaps {
		name := s.Constraint
		if name == "" {
			name = "-"
		}
		amb := "finite"
		if s.Infinite {
			amb = "infinite"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\t%d\t%s\n", s.Slot, s.Stage, s.Kind, name, s.Size.States, s.Size.Arcs, amb)
	}
	return tw.Flush()
}

// Constraints writes the ranking with one row per constraint. Bundle
// members follow their bundle, indented.
func (p *Printer) Constraints(cs []*constraint.Constraint) error {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tKIND\tPRECISION")
	for i, c := range cs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", i+1, c.Name(), c.Kind(), c.Precision())
		for _, m := range c.Children() {
			fmt.Fprintf(tw, "\t  %s\t%s\t%d\n", m.Name(), m.Kind(), m.Precision())
		}
	}
	return tw.Flush()
}
