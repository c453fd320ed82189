// Package label colors the labels printed in front of each target's lines.
package label

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// colors are ANSI colors readable on both dark and light backgrounds.
var colors = []lipgloss.Color{"6", "3", "5", "2", "4", "1", "14", "11", "13", "10", "12", "9"}

// Palette assigns a color to every target label. Colors are only emitted
// when the output supports them, e.g. not when it is redirected to a file.
type Palette struct {
	styles []lipgloss.Style
}

// NewPalette returns a [Palette] for labels written to w.
func NewPalette(w io.Writer) *Palette {
	r := lipgloss.NewRenderer(w)

	styles := make([]lipgloss.Style, len(colors))
	for i, c := range colors {
		styles[i] = r.NewStyle().Foreground(c)
	}
	return &Palette{styles: styles}
}

// Style renders label with the color of the target at index.
func (p *Palette) Style(index int, label string) string {
	return p.styles[index%len(p.styles)].Render(label)
}
