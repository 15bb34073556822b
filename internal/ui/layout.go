package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hvu/crmdesk/internal/theme"
)

// Frame composes the fixed chrome around the active view: a one-line
// header carrying the unread bell badge on the right, and a one-line
// status bar where a transient notice takes precedence over key hints.
type Frame struct {
	Width  int
	Height int
}

// NewFrame creates a Frame for the given terminal dimensions.
func NewFrame(width, height int) Frame {
	return Frame{Width: width, Height: height}
}

// ContentHeight returns the height left for the active view between the
// header and the status bar.
func (f Frame) ContentHeight() int {
	return f.Height - 2
}

// Header renders the title on the left and the unread badge on the right,
// filling the gap so the header background spans the full width.
func (f Frame) Header(title string, badge string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	badgeRendered := theme.HeaderStyle.Render(badge)

	gap := f.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(badgeRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		badgeRendered,
	)
}

// StatusBar renders the transient notice when one is active, otherwise the
// key hints. Notices are highlighted so a failed action cannot be mistaken
// for a hint line.
func (f Frame) StatusBar(notice string, hints string) string {
	style := theme.StatusBarStyle
	text := hints
	if notice != "" {
		style = style.Foreground(theme.ColorYellow).Bold(true)
		text = notice
	}
	rendered := style.Render(text)

	gap := f.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// Compose joins the header, content area, and status bar vertically.
func (f Frame) Compose(header string, content string, statusBar string) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
