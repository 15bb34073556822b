package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvu/crmdesk/internal/api"
	"github.com/hvu/crmdesk/internal/model"
)

func TestListNotifications_QueryAndDecoding(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			w.Write([]byte(`{
				"count": 42,
				"next": "/notifications?page=2",
				"previous": "",
				"results": [
					{
						"id": 9,
						"type": "deal_won",
						"title": "Deal won",
						"message": "Acme signed",
						"entity_type": "deal",
						"entity_id": 7,
						"is_read": false,
						"created_at": "2026-08-30T10:00:00Z"
					}
				]
			}`))
		},
	))
	defer srv.Close()

	c := api.NewClient(srv.URL, staticToken("t1"))
	page, err := c.ListNotifications(context.Background(), api.ListOptions{
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, "page_size=20&ordering=-created_at", gotQuery)
	assert.Equal(t, 42, page.Count)
	require.Len(t, page.Results, 1)

	n := page.Results[0]
	assert.Equal(t, int64(9), n.ID)
	assert.Equal(t, model.NotificationDealWon, n.Type)
	assert.Equal(t, model.EntityDeal, n.EntityType)
	assert.Equal(t, int64(7), n.EntityID)
	assert.False(t, n.IsRead)
}

func TestListNotifications_SecondPage(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			w.Write([]byte(`{"count": 0, "results": []}`))
		},
	))
	defer srv.Close()

	c := api.NewClient(srv.URL, staticToken("t1"))
	_, err := c.ListNotifications(context.Background(), api.ListOptions{
		Page:     2,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "page_size=10&ordering=-created_at&page=2", gotQuery)
}

func TestUnreadCount_MissingFieldIsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			// Partial response without a count field.
			w.Write([]byte(`{}`))
		},
	))
	defer srv.Close()

	c := api.NewClient(srv.URL, staticToken("t1"))
	count, err := c.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMarkRead_Path(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotMethod = r.Method
			w.WriteHeader(http.StatusNoContent)
		},
	))
	defer srv.Close()

	c := api.NewClient(srv.URL, staticToken("t1"))
	require.NoError(t, c.MarkRead(context.Background(), 17))
	assert.Equal(t, "/notifications/17/read", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/accounts/login", r.URL.Path)
			w.Write([]byte(`{
				"user": {"id": 1, "email": "a@b.com", "name": "Ana"},
				"token": "t1",
				"role": "admin"
			}`))
		},
	))
	defer srv.Close()

	c := api.NewClient(srv.URL, staticToken(""))
	result, err := c.Login(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.User.ID)
	assert.Equal(t, "t1", result.Token)
	// A scalar role decodes into a single-element list.
	assert.Equal(t, model.Role{"admin"}, result.Role)
}
