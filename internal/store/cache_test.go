package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvu/crmdesk/internal/model"
	"github.com/hvu/crmdesk/tests/testutil"
)

func sampleFeed() []model.Notification {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	return []model.Notification{
		{
			ID:         3,
			Type:       model.NotificationDealWon,
			Title:      "Deal won",
			Message:    "Acme signed",
			EntityType: model.EntityDeal,
			EntityID:   7,
			CreatedAt:  base.Add(2 * time.Minute),
		},
		{
			ID:         2,
			Type:       model.NotificationTaskCreated,
			Title:      "New task",
			EntityType: model.EntityTask,
			EntityID:   12,
			CreatedAt:  base.Add(time.Minute),
		},
		{
			ID:        1,
			Type:      model.NotificationSystem,
			Title:     "Maintenance window",
			IsRead:    true,
			CreatedAt: base,
		},
	}
}

func TestFeedCache_SaveAndLoad(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SaveFeed(ctx, sampleFeed(), 5))

	ns, unread, err := c.LoadFeed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, unread)
	require.Len(t, ns, 3)

	// Newest first, regardless of insert order.
	assert.Equal(t, int64(3), ns[0].ID)
	assert.Equal(t, int64(1), ns[2].ID)

	assert.Equal(t, model.NotificationDealWon, ns[0].Type)
	assert.Equal(t, model.EntityDeal, ns[0].EntityType)
	assert.Equal(t, int64(7), ns[0].EntityID)
	assert.False(t, ns[0].IsRead)
	assert.True(t, ns[2].IsRead)
}

func TestFeedCache_SaveReplacesPreviousFeed(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SaveFeed(ctx, sampleFeed(), 5))
	require.NoError(t, c.SaveFeed(ctx, sampleFeed()[:1], 1))

	ns, unread, err := c.LoadFeed(ctx)
	require.NoError(t, err)
	assert.Len(t, ns, 1)
	assert.Equal(t, 1, unread)
}

func TestFeedCache_EmptyCache(t *testing.T) {
	c := testutil.NewTestCache(t)

	ns, unread, err := c.LoadFeed(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ns)
	assert.Zero(t, unread)
}

func TestFeedCache_MarkRead(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SaveFeed(ctx, sampleFeed(), 2))
	require.NoError(t, c.MarkRead(ctx, 3))

	ns, unread, err := c.LoadFeed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
	assert.True(t, ns[0].IsRead)
}

func TestFeedCache_MarkReadAlreadyReadKeepsCount(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SaveFeed(ctx, sampleFeed(), 2))

	// id 1 is already read; the count must not move.
	require.NoError(t, c.MarkRead(ctx, 1))

	_, unread, err := c.LoadFeed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)
}

func TestFeedCache_MarkReadFloorsAtZero(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SaveFeed(ctx, sampleFeed(), 0))
	require.NoError(t, c.MarkRead(ctx, 2))

	_, unread, err := c.LoadFeed(ctx)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestFeedCache_MarkAllRead(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SaveFeed(ctx, sampleFeed(), 2))
	require.NoError(t, c.MarkAllRead(ctx))

	ns, unread, err := c.LoadFeed(ctx)
	require.NoError(t, err)
	assert.Zero(t, unread)
	for _, n := range ns {
		assert.True(t, n.IsRead)
	}
}
