package feedview

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hvu/crmdesk/internal/feed"
	"github.com/hvu/crmdesk/internal/keys"
	"github.com/hvu/crmdesk/internal/theme"
)

// noticeTTL is how long transient status notices stay visible.
const noticeTTL = 4 * time.Second

// OpenEntityMsg is sent when the user selects a notification that links to
// a CRM entity. Path is the entity's route, e.g. "/deals/7".
type OpenEntityMsg struct {
	Path string
}

// RefreshRequestedMsg is sent when the user asks for a manual refresh.
type RefreshRequestedMsg struct{}

// markAllDoneMsg carries the outcome of a mark-all-read request.
type markAllDoneMsg struct {
	err error
}

// clearNoticeMsg expires the transient status notice.
type clearNoticeMsg struct{}

// Model is the notification feed view component.
type Model struct {
	list   list.Model
	feed   *feed.Feed
	keys   *keys.KeyMap
	notice string
	width  int
	height int
}

// New creates a new feed view model over the given feed.
func New(f *feed.Feed, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		feed:   f,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetSnapshot replaces the displayed notifications with the given snapshot,
// keeping the cursor on the same index where possible.
func (m *Model) SetSnapshot(snap feed.Snapshot) {
	items := make([]list.Item, len(snap.Notifications))
	for i, n := range snap.Notifications {
		items[i] = NotificationItem{Notification: n}
	}

	idx := m.list.Index()
	m.list.SetItems(items)
	if idx < len(items) {
		m.list.Select(idx)
	} else if len(items) > 0 {
		m.list.Select(len(items) - 1)
	}
}

// Update handles messages for the feed view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case markAllDoneMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("mark all read failed: %v", msg.err)
			return m, m.scheduleNoticeClear()
		}
		m.SetSnapshot(m.feed.Snapshot())
		return m, nil

	case clearNoticeMsg:
		m.notice = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleKeys processes key input for the feed view.
func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(NotificationItem)
		if !ok {
			return m, nil
		}
		m.feed.MarkRead(item.Notification.ID)
		m.SetSnapshot(m.feed.Snapshot())

		path, ok := feed.ResolveRoute(item.Notification)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return OpenEntityMsg{Path: path}
		}

	case key.Matches(msg, m.keys.MarkRead):
		item, ok := m.list.SelectedItem().(NotificationItem)
		if !ok {
			return m, nil
		}
		m.feed.MarkRead(item.Notification.ID)
		m.SetSnapshot(m.feed.Snapshot())
		return m, nil

	case key.Matches(msg, m.keys.MarkAllRead):
		return m, m.markAllRead()

	case key.Matches(msg, m.keys.Refresh):
		return m, func() tea.Msg {
			return RefreshRequestedMsg{}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// markAllRead returns a command that issues the bulk mark-all request and
// reports its outcome.
func (m Model) markAllRead() tea.Cmd {
	f := m.feed
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return markAllDoneMsg{err: f.MarkAllRead(ctx)}
	}
}

// scheduleNoticeClear expires the status notice after noticeTTL.
func (m Model) scheduleNoticeClear() tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{}
	})
}

// View renders the feed view.
func (m Model) View() string {
	var sections []string

	if m.notice != "" {
		sections = append(sections, theme.NoticeStyle.Render(m.notice))
	}

	if len(m.list.Items()) == 0 {
		sections = append(sections, m.renderEmptyState())
	} else {
		sections = append(sections, m.list.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderEmptyState shows guidance text when the feed is empty.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	return style.Render("No notifications yet.\n\nPress r to refresh.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
