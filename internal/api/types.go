package api

import "github.com/hvu/crmdesk/internal/model"

// ErrorResponse is the backend's standard error body.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// NotificationPage is one page of the paginated notification list.
type NotificationPage struct {
	// Count is the total number of notifications across all pages,
	// read and unread alike. It is not an unread count.
	Count    int                  `json:"count"`
	Next     string               `json:"next"`
	Previous string               `json:"previous"`
	Results  []model.Notification `json:"results"`
}

// unreadCountResponse is the body of the dedicated unread-count endpoint.
// A missing count field decodes to zero.
type unreadCountResponse struct {
	Count int `json:"count"`
}

// loginRequest is the credentials body for the login endpoint.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the backend's response to a successful login.
type LoginResult struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
	Role  model.Role `json:"role"`
}
