package report

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// render is the signature of lipgloss.Style.Render.
type render func(strs ...string) string

type palette struct {
	win     render
	lose    render
	label   render
	form    render
	traced  render
	dim     render
	heading render
}

func plain(strs ...string) string { return strings.Join(strs, " ") }

func plainPalette() palette {
	return palette{
		win:     plain,
		lose:    plain,
		label:   plain,
		form:    plain,
		traced:  plain,
		dim:     plain,
		heading: plain,
	}
}

// styledPalette builds the styles against a renderer bound to w so that
// redirected output degrades to plain text.
func styledPalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	return palette{
		win: r.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true).Render,
		lose: r.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).Render,
		label: r.NewStyle().
			Foreground(lipgloss.Color("45")).Render,
		form: r.NewStyle().
			Foreground(lipgloss.Color("231")).Render,
		traced: r.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true).Render,
		dim: r.NewStyle().
			Foreground(lipgloss.Color("245")).Render,
		heading: r.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).Render,
	}
}
