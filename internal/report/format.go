package report

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/otgrammar/internal/fst"
)

// FormatDuration formats d as seconds with two decimals, e.g. "1.25 seconds".
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2f seconds", d.Seconds())
}

// FormatSize formats an automaton size as "X states, Y arcs".
func FormatSize(s fst.Size) string {
	return fmt.Sprintf("%d states, %d arcs", s.States, s.Arcs)
}

// Quote wraps a form in single quotes, or in slashes when it is a pattern.
func Quote(s string, pattern bool) string {
	if pattern {
		return "/" + s + "/"
	}
	return "'" + s + "'"
}
