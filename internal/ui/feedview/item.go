package feedview

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hvu/crmdesk/internal/model"
	"github.com/hvu/crmdesk/internal/theme"
)

// NotificationItem wraps a model.Notification so it can be used in a
// bubbles/list.
type NotificationItem struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i NotificationItem) FilterValue() string {
	return i.Notification.Title
}

// Title returns the notification title for the list.
func (i NotificationItem) Title() string {
	return i.Notification.Title
}

// Description returns a short summary line for the list.
func (i NotificationItem) Description() string {
	parts := []string{
		typeLabel(i.Notification.Type),
		relativeTime(i.Notification.CreatedAt),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering notification rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single notification line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ni, ok := item.(NotificationItem)
	if !ok {
		return
	}

	n := ni.Notification
	isSelected := index == m.Index()

	var prefix string
	if n.IsRead {
		prefix = " "
	} else {
		prefix = "●"
	}

	typeBadge := theme.TypeStyle(n.Type).Render(typeLabel(n.Type))

	title := n.Title
	if n.IsRead {
		title = theme.ReadStyle.Render(title)
	} else {
		title = theme.UnreadStyle.Render(title)
	}

	entityBadge := ""
	if n.EntityType != "" && n.EntityID != 0 {
		entityBadge = theme.EntityLabelStyle(n.EntityType).
			Render(string(n.EntityType))
	}

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(n.CreatedAt))

	line := fmt.Sprintf(
		"%s %s %s%s  %s",
		prefix, typeBadge, title, entityBadge, timeStr,
	)

	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// typeLabel returns a short human label for a notification type.
func typeLabel(t model.NotificationType) string {
	switch t {
	case model.NotificationTaskCreated:
		return "task"
	case model.NotificationDealWon:
		return "deal"
	case model.NotificationLeadConverted:
		return "lead"
	case model.NotificationSystem:
		return "system"
	default:
		return string(t)
	}
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case d < 24*time.Hour:
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hrs)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		weeks := int(d.Hours() / 24 / 7)
		if weeks == 1 {
			return "1w ago"
		}
		return fmt.Sprintf("%dw ago", weeks)
	}
}
