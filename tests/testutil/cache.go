package testutil

import (
	"testing"

	"github.com/hvu/crmdesk/internal/store"
)

// NewTestCache creates an in-memory FeedCache with all migrations applied.
// It automatically closes the cache when the test completes.
func NewTestCache(t *testing.T) *store.FeedCache {
	t.Helper()

	c, err := store.NewFeedCache(":memory:")
	if err != nil {
		t.Fatalf("creating test cache: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("closing test cache: %v", err)
		}
	})

	return c
}
