package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Painter defines coloring text with [lipgloss] styles.
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

type stylePainter struct{}

func (stylePainter) On(text string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Background(c).Render(text)
}

func (stylePainter) As(text string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(c).Render(text)
}

// paint is the package's single [Painter], used for one-off coloring where a
// named [lipgloss.Style] in styles would be overkill.
var paint Painter = stylePainter{}

var styles = struct {
	title lipgloss.Style
	err   lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	dim   lipgloss.Style
}{
	title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
	err:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	ok:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
	warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
}
