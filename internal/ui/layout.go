// Package ui holds the console layout shared by every view.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-tracker/internal/theme"
)

// Layout manages the header, content, and status bar dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// fill pads rendered out to the layout width using style's background.
func (l Layout) fill(style lipgloss.Style, parts ...string) string {
	used := 0
	for _, p := range parts {
		used += lipgloss.Width(p)
	}
	gap := max(l.Width-used, 0)

	filler := style.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(style.GetBackground()).
			Render(""),
	)
	if len(parts) < 2 {
		return lipgloss.JoinHorizontal(lipgloss.Top, append(parts, filler)...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts[0], filler, parts[1])
}

// RenderHeader renders the top bar with a title on the left and the
// signed-in identity on the right.
func (l Layout) RenderHeader(title, identity string) string {
	left := theme.HeaderStyle.Render(title)
	right := theme.HeaderStyle.Align(lipgloss.Right).Render(identity)
	return l.fill(theme.HeaderStyle, left, right)
}

// RenderStatusBar renders the bottom bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return l.fill(theme.StatusBarStyle, theme.StatusBarStyle.Render(hints))
}

// RenderError renders the bottom bar as an error message.
func (l Layout) RenderError(msg string) string {
	return l.fill(theme.ErrorBarStyle, theme.ErrorBarStyle.Render(msg))
}

// RenderWithFrame stacks header, content, and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
