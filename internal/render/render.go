// Package render formats answers and tables for the terminal. Output written
// to anything that is not a terminal stays free of escape sequences.
package render

import (
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const wordWrap = 120

// Renderer turns markdown into printable text.
type Renderer interface {
	Render(in string) (string, error)
}

// PlainText returns content unchanged. It is the fallback when glamour
// cannot be initialised and the choice for --render=false.
type PlainText struct{}

func (PlainText) Render(in string) (string, error) { return in, nil }

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

func baseStyle() ansi.StyleConfig {
	style := styles.LightStyleConfig
	if termenv.HasDarkBackground() {
		style = styles.DarkStyleConfig
	}
	style.Document.BlockPrefix = ""
	return style
}

func asciiStyle() ansi.StyleConfig {
	style := styles.ASCIIStyleConfig
	style.Document.BlockPrefix = ""
	style.Document.Margin = nil
	return style
}

// Markdown returns a renderer suited to w: colored glamour output on a
// terminal, the ASCII glamour style otherwise.
func Markdown(w io.Writer) Renderer {
	style := asciiStyle()
	if IsTerminal(w) {
		style = baseStyle()
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return PlainText{}
	}
	return r
}

// Styles are the lipgloss styles bound to one output.
type Styles struct {
	Header lipgloss.Style
	Muted  lipgloss.Style
	OK     lipgloss.Style
	Fail   lipgloss.Style
	Cell   lipgloss.Style
}

// NewStyles binds the styles to w, dropping colors when w is not a terminal.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	if !IsTerminal(w) {
		r.SetColorProfile(termenv.Ascii)
	}
	return Styles{
		Header: r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#2980b9", Dark: "#3498db"}),
		Muted:  r.NewStyle().Faint(true),
		OK:     r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#16a085", Dark: "#1abc9c"}),
		Fail:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#c0392b", Dark: "#e74c3c"}),
		Cell:   r.NewStyle().PaddingRight(1),
	}
}
