package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/watchlist/internal/session"
)

var styles = NewPalette("#E8A33D", "#04B575", "#FF4C4C", "#FFA500", "#626262")

// interface Painter defines coloring text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	label lipgloss.Style
	box   lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		label: NewStyle(h).Width(10),
		box:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(t)).Padding(1, 2),
	}
}

// Toast renders a notification in the color of its level.
func (p *Palette) Toast(n session.Notification) string {
	switch n.Level {
	case session.LevelSuccess:
		return p.ok.Render("✓ " + n.Message)
	case session.LevelError:
		return p.err.Render("✗ " + n.Message)
	case session.LevelWarn:
		return p.warn.Render("! " + n.Message)
	default:
		return n.Message
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
