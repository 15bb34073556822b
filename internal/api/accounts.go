package api

import (
	"context"
	"fmt"

	"github.com/hvu/crmdesk/internal/model"
)

// Login exchanges credentials for a user record, bearer token, and role.
func (c *Client) Login(
	ctx context.Context,
	email string,
	password string,
) (*LoginResult, error) {
	var result LoginResult
	err := c.Post(ctx, "/accounts/login", loginRequest{
		Email:    email,
		Password: password,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}

	return &result, nil
}

// Logout invalidates the session server-side. Callers clear the local
// session regardless of this call's outcome; local invalidation is
// authoritative from the client's point of view.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.Post(ctx, "/accounts/logout", nil, nil); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// Profile fetches the current account's identity record. A 401 here is how
// a restored session's staleness is detected at startup.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.Get(ctx, "/accounts/me", &user); err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	return &user, nil
}
