// Package bell renders the header unread badge for the notification feed.
package bell

import (
	"fmt"

	"github.com/hvu/crmdesk/internal/feed"
	"github.com/hvu/crmdesk/internal/theme"
)

// Badge returns the header badge text for the given feed snapshot. The
// count always comes from the dedicated unread counter, never from the
// visible page.
func Badge(snap feed.Snapshot) string {
	label := bellLabel(snap.UnreadCount)
	if snap.State == feed.StateLoading {
		label += " ⟳"
	}
	if snap.UnreadCount > 0 {
		return theme.BellStyle.Render(label)
	}
	return label
}

func bellLabel(unread int) string {
	if unread <= 0 {
		return "🔔"
	}
	if unread > 99 {
		return "🔔 99+"
	}
	return fmt.Sprintf("🔔 %d", unread)
}
