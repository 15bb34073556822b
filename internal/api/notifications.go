package api

import (
	"context"
	"fmt"
)

// ListOptions controls pagination for the notification list.
type ListOptions struct {
	Page     int
	PageSize int
}

// ListNotifications fetches one page of the user's notifications,
// newest first.
func (c *Client) ListNotifications(
	ctx context.Context,
	opts ListOptions,
) (*NotificationPage, error) {
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	path := fmt.Sprintf(
		"/notifications?page_size=%d&ordering=-created_at", pageSize,
	)
	if opts.Page > 1 {
		path += fmt.Sprintf("&page=%d", opts.Page)
	}

	var page NotificationPage
	if err := c.Get(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}

	return &page, nil
}

// UnreadCount fetches the authoritative unread count. The count endpoint is
// the only source of this number; it is never derived from a fetched page.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp unreadCountResponse
	if err := c.Get(ctx, "/notifications/unread-count", &resp); err != nil {
		return 0, fmt.Errorf("fetching unread count: %w", err)
	}

	if resp.Count < 0 {
		return 0, nil
	}
	return resp.Count, nil
}

// MarkRead marks a single notification as read on the backend.
func (c *Client) MarkRead(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/notifications/%d/read", id)
	if err := c.Post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllRead marks every unread notification read for the current user.
func (c *Client) MarkAllRead(ctx context.Context) error {
	if err := c.Post(ctx, "/notifications/mark-all-read", nil, nil); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}
