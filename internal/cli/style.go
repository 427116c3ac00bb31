package cli

import "github.com/charmbracelet/lipgloss"

// Gruvbox-inspired color palette.
var (
	colorGreen  = lipgloss.Color("#8ec07c")
	colorRed    = lipgloss.Color("#fb4934")
	colorYellow = lipgloss.Color("#fabd2f")
	colorDim    = lipgloss.Color("#928374")
)

// styles renders report fragments, or passes text through when color is off.
type styles struct {
	enabled bool
	ok      lipgloss.Style
	bad     lipgloss.Style
	warn    lipgloss.Style
	dim     lipgloss.Style
	file    lipgloss.Style
}

func newStyles(enabled bool) styles {
	return styles{
		enabled: enabled,
		ok:      lipgloss.NewStyle().Foreground(colorGreen),
		bad:     lipgloss.NewStyle().Foreground(colorRed).Bold(true),
		warn:    lipgloss.NewStyle().Foreground(colorYellow),
		dim:     lipgloss.NewStyle().Foreground(colorDim),
		file:    lipgloss.NewStyle().Bold(true),
	}
}

func (s styles) render(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return st.Render(text)
}
