package feed_test

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvu/crmdesk/internal/api"
	"github.com/hvu/crmdesk/internal/feed"
	"github.com/hvu/crmdesk/internal/model"
)

// apiStub is a controllable in-memory API for feed tests. listGates lets a
// test block a specific ListNotifications call (by 1-based ordinal) until
// it sends a token, to exercise overlapping refreshes deterministically.
type apiStub struct {
	mu         gosync.Mutex
	page       []model.Notification
	count      int
	listErr    error
	countErr   error
	markAllErr error

	listCalls    int
	countCalls   int
	markAllCalls int
	markedIDs    []int64

	listGates map[int]chan struct{}
}

func (s *apiStub) ListNotifications(
	ctx context.Context,
	opts api.ListOptions,
) (*api.NotificationPage, error) {
	s.mu.Lock()
	s.listCalls++
	gate := s.listGates[s.listCalls]
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return &api.NotificationPage{
		Count:   len(s.page),
		Results: append([]model.Notification(nil), s.page...),
	}, nil
}

func (s *apiStub) UnreadCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countCalls++
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.count, nil
}

func (s *apiStub) MarkRead(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markedIDs = append(s.markedIDs, id)
	return nil
}

func (s *apiStub) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markAllCalls++
	return s.markAllErr
}

func (s *apiStub) setPage(ns []model.Notification, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = ns
	s.count = count
}

func (s *apiStub) listCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func (s *apiStub) marked() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.markedIDs...)
}

// cacheStub records cache traffic. saveEntered/saveRelease let a test hold
// a SaveFeed call open; markGate blocks MarkRead until released.
type cacheStub struct {
	mu        gosync.Mutex
	saved     [][]model.Notification
	markedIDs []int64

	saveEntered chan struct{}
	saveRelease chan struct{}
	markGate    chan struct{}
}

func (c *cacheStub) LoadFeed(ctx context.Context) ([]model.Notification, int, error) {
	return nil, 0, nil
}

func (c *cacheStub) SaveFeed(
	ctx context.Context,
	ns []model.Notification,
	unread int,
) error {
	if c.saveEntered != nil {
		c.saveEntered <- struct{}{}
	}
	if c.saveRelease != nil {
		<-c.saveRelease
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved = append(c.saved, append([]model.Notification(nil), ns...))
	return nil
}

func (c *cacheStub) MarkRead(ctx context.Context, id int64) error {
	if c.markGate != nil {
		<-c.markGate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markedIDs = append(c.markedIDs, id)
	return nil
}

func (c *cacheStub) MarkAllRead(ctx context.Context) error { return nil }

func (c *cacheStub) savedFeeds() [][]model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved
}

func (c *cacheStub) markedReads() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.markedIDs...)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func notif(id int64, read bool) model.Notification {
	return model.Notification{
		ID:        id,
		Type:      model.NotificationSystem,
		Title:     "n",
		IsRead:    read,
		CreatedAt: time.Now(),
	}
}

func TestRefresh_UsesCountEndpointNotPage(t *testing.T) {
	stub := &apiStub{}
	// Three unread notifications visible, but the dedicated count
	// endpoint knows about more beyond the page.
	stub.setPage([]model.Notification{
		notif(1, false), notif(2, false), notif(3, false),
	}, 7)

	f := feed.New(stub, nil, 20)
	require.NoError(t, f.Refresh(context.Background()))

	snap := f.Snapshot()
	assert.Equal(t, feed.StateLoaded, snap.State)
	assert.Len(t, snap.Notifications, 3)
	assert.Equal(t, 7, snap.UnreadCount)
}

func TestRefresh_FailureRetainsPriorState(t *testing.T) {
	stub := &apiStub{}
	stub.setPage([]model.Notification{notif(1, false)}, 1)

	f := feed.New(stub, nil, 20)
	require.NoError(t, f.Refresh(context.Background()))

	stub.mu.Lock()
	stub.countErr = errors.New("boom")
	stub.mu.Unlock()

	err := f.Refresh(context.Background())
	require.Error(t, err)

	snap := f.Snapshot()
	assert.Equal(t, feed.StateIdle, snap.State)
	assert.Len(t, snap.Notifications, 1)
	assert.Equal(t, 1, snap.UnreadCount)
}

func TestMarkRead_OptimisticFlipAndFloor(t *testing.T) {
	stub := &apiStub{}
	stub.setPage([]model.Notification{
		notif(5, false), notif(6, true),
	}, 1)

	f := feed.New(stub, nil, 20)
	require.NoError(t, f.Refresh(context.Background()))

	f.MarkRead(5)
	snap := f.Snapshot()
	assert.True(t, snap.Notifications[0].IsRead)
	assert.Equal(t, 0, snap.UnreadCount)

	// Marking an already-read id must not decrement below zero.
	f.MarkRead(6)
	f.MarkRead(5)
	snap = f.Snapshot()
	assert.Equal(t, 0, snap.UnreadCount)

	// The server call is issued without waiting for confirmation.
	waitFor(t, func() bool { return len(stub.marked()) >= 3 })
}

func TestMarkRead_UnknownIDIsLocalNoOp(t *testing.T) {
	stub := &apiStub{}
	stub.setPage([]model.Notification{notif(1, false)}, 1)

	f := feed.New(stub, nil, 20)
	require.NoError(t, f.Refresh(context.Background()))

	f.MarkRead(999)
	snap := f.Snapshot()
	assert.Equal(t, 1, snap.UnreadCount)
	assert.False(t, snap.Notifications[0].IsRead)
}

func TestMarkAllRead_Success(t *testing.T) {
	stub := &apiStub{}
	stub.setPage([]model.Notification{
		notif(1, false), notif(2, false), notif(3, true),
	}, 2)

	f := feed.New(stub, nil, 20)
	require.NoError(t, f.Refresh(context.Background()))

	require.NoError(t, f.MarkAllRead(context.Background()))

	snap := f.Snapshot()
	for _, n := range snap.Notifications {
		assert.True(t, n.IsRead)
	}
	assert.Equal(t, 0, snap.UnreadCount)
}

func TestMarkAllRead_FailureLeavesStateUntouched(t *testing.T) {
	stub := &apiStub{}
	stub.setPage([]model.Notification{notif(1, false)}, 1)

	f := feed.New(stub, nil, 20)
	require.NoError(t, f.Refresh(context.Background()))

	stub.mu.Lock()
	stub.markAllErr = errors.New("backend down")
	stub.mu.Unlock()

	err := f.MarkAllRead(context.Background())
	require.Error(t, err)

	snap := f.Snapshot()
	assert.False(t, snap.Notifications[0].IsRead)
	assert.Equal(t, 1, snap.UnreadCount)
}

func TestRefresh_StaleResultDiscarded(t *testing.T) {
	stub := &apiStub{
		listGates: map[int]chan struct{}{
			1: make(chan struct{}),
			2: make(chan struct{}),
		},
	}
	stub.setPage([]model.Notification{notif(1, false)}, 1)

	f := feed.New(stub, nil, 20)

	var wg gosync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = f.Refresh(context.Background())
	}()
	waitFor(t, func() bool { return stub.listCallCount() == 1 })

	go func() {
		defer wg.Done()
		_ = f.Refresh(context.Background())
	}()
	waitFor(t, func() bool { return stub.listCallCount() == 2 })

	// The newer refresh resolves first and sees the newer page.
	stub.listGates[2] <- struct{}{}
	waitFor(t, func() bool {
		return len(f.Snapshot().Notifications) == 1
	})

	// The older page arrives late with different contents; it must be
	// discarded rather than overwrite the newer result.
	stub.setPage([]model.Notification{notif(1, false), notif(2, false)}, 2)
	stub.listGates[1] <- struct{}{}
	wg.Wait()

	snap := f.Snapshot()
	assert.Len(t, snap.Notifications, 1)
	assert.Equal(t, feed.StateLoaded, snap.State)
}

func TestRefresh_ReappliesMarkOverInFlightPoll(t *testing.T) {
	stub := &apiStub{
		listGates: map[int]chan struct{}{2: make(chan struct{})},
	}
	stub.setPage([]model.Notification{
		notif(5, false), notif(6, false),
	}, 2)

	f := feed.New(stub, nil, 20)
	require.NoError(t, f.Refresh(context.Background()))

	// Second poll leaves before the user marks notification 5 read.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Refresh(context.Background())
	}()
	waitFor(t, func() bool { return stub.listCallCount() == 2 })

	f.MarkRead(5)

	// The in-flight poll resolves with 5 still unread; the local mark
	// must survive its application.
	stub.listGates[2] <- struct{}{}
	<-done

	snap := f.Snapshot()
	require.Len(t, snap.Notifications, 2)
	assert.True(t, snap.Notifications[0].IsRead)
	assert.Equal(t, 1, snap.UnreadCount)

	// A poll dispatched after the mark takes the server's word again.
	stub.setPage([]model.Notification{
		notif(5, true), notif(6, false),
	}, 1)
	require.NoError(t, f.Refresh(context.Background()))
	snap = f.Snapshot()
	assert.True(t, snap.Notifications[0].IsRead)
	assert.Equal(t, 1, snap.UnreadCount)
}

func TestRefresh_CacheWriteIsolatedFromConcurrentMark(t *testing.T) {
	stub := &apiStub{}
	stub.setPage([]model.Notification{
		notif(1, false), notif(2, false),
	}, 2)

	cache := &cacheStub{
		saveEntered: make(chan struct{}),
		saveRelease: make(chan struct{}),
	}
	f := feed.New(stub, cache, 20)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Refresh(context.Background())
	}()
	<-cache.saveEntered

	// A mark arriving while the cache write is still running must not
	// touch the data being written.
	f.MarkRead(1)

	close(cache.saveRelease)
	<-done

	saved := cache.savedFeeds()
	require.Len(t, saved, 1)
	assert.False(t, saved[0][0].IsRead)

	snap := f.Snapshot()
	assert.True(t, snap.Notifications[0].IsRead)
	assert.Equal(t, 1, snap.UnreadCount)
}

func TestMarkRead_ReturnsBeforeCacheWrite(t *testing.T) {
	stub := &apiStub{}
	stub.setPage([]model.Notification{notif(1, false)}, 1)

	cache := &cacheStub{markGate: make(chan struct{})}
	f := feed.New(stub, cache, 20)
	require.NoError(t, f.Refresh(context.Background()))

	// The cache write is still blocked; the local flip must not wait on it.
	f.MarkRead(1)
	snap := f.Snapshot()
	assert.True(t, snap.Notifications[0].IsRead)
	assert.Equal(t, 0, snap.UnreadCount)
	assert.Empty(t, cache.markedReads())

	close(cache.markGate)
	waitFor(t, func() bool { return len(cache.markedReads()) == 1 })
}

func TestClose_InFlightRefreshDoesNotMutate(t *testing.T) {
	stub := &apiStub{
		listGates: map[int]chan struct{}{1: make(chan struct{})},
	}
	stub.setPage([]model.Notification{notif(1, false)}, 1)

	f := feed.New(stub, nil, 20)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Refresh(context.Background())
	}()
	waitFor(t, func() bool { return stub.listCallCount() == 1 })

	f.Close()
	stub.listGates[1] <- struct{}{}
	<-done

	snap := f.Snapshot()
	assert.Empty(t, snap.Notifications)
	assert.Equal(t, 0, snap.UnreadCount)
}

func TestClose_MutationsBecomeNoOps(t *testing.T) {
	stub := &apiStub{}
	stub.setPage([]model.Notification{notif(1, false)}, 1)

	f := feed.New(stub, nil, 20)
	require.NoError(t, f.Refresh(context.Background()))
	f.Close()

	f.MarkRead(1)
	require.NoError(t, f.Refresh(context.Background()))

	snap := f.Snapshot()
	assert.False(t, snap.Notifications[0].IsRead)
	assert.Equal(t, 1, snap.UnreadCount)
	assert.Equal(t, 1, stub.listCallCount())
}
