package feed

import (
	"context"
	gosync "sync"
	"time"

	"github.com/hvu/crmdesk/internal/api"
	"github.com/hvu/crmdesk/internal/model"
)

// State represents the current fetch state of the feed.
type State int

const (
	// StateIdle is the initial state, and the state after a failed
	// refresh (with last-known data retained).
	StateIdle State = iota
	// StateLoading means a refresh is in flight.
	StateLoading
	// StateLoaded means the most recent refresh succeeded.
	StateLoaded
)

// markTimeout bounds the fire-and-forget mark-read request.
const markTimeout = 10 * time.Second

// API is the subset of the CRM client the feed consumes.
type API interface {
	ListNotifications(ctx context.Context, opts api.ListOptions) (*api.NotificationPage, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
}

// Cache persists the last-known feed so a restart shows the previous
// contents before the first poll completes. All cache writes are
// best-effort; the feed never fails on a cache error.
type Cache interface {
	LoadFeed(ctx context.Context) ([]model.Notification, int, error)
	SaveFeed(ctx context.Context, ns []model.Notification, unread int) error
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
}

// Snapshot is an immutable copy of the feed state handed to the UI.
type Snapshot struct {
	State         State
	Notifications []model.Notification
	UnreadCount   int
	FetchedAt     time.Time
}

// Feed keeps a local, eventually-consistent view of the user's
// notifications plus the unread count. There is exactly one writer context;
// the mutex only guards against overlapping request completions.
//
// Every refresh is stamped with a monotonically increasing dispatch version.
// A completing refresh applies its result only if it is still the latest
// dispatched, so a slow poll can never overwrite the result of a newer one.
// Local read marks are recorded with the version current at mark time and
// re-applied on top of any refresh result whose dispatch predates the mark:
// a poll that left before the user pressed "read" cannot silently flip the
// notification back to unread.
type Feed struct {
	api      API
	cache    Cache
	pageSize int

	mu            gosync.Mutex
	state         State
	notifications []model.Notification
	unread        int
	fetchedAt     time.Time
	closed        bool
	dispatched    uint64
	localReads    map[int64]uint64
	allReadAt     uint64
}

// New creates a feed over the given API. cache may be nil.
func New(a API, cache Cache, pageSize int) *Feed {
	if pageSize < 1 {
		pageSize = 20
	}
	return &Feed{
		api:        a,
		cache:      cache,
		pageSize:   pageSize,
		localReads: make(map[int64]uint64),
	}
}

// LoadCached seeds the feed from the cache. It only applies before the
// first successful refresh, and a cache miss or error leaves the feed
// empty; the notification feed is a non-critical affordance.
func (f *Feed) LoadCached(ctx context.Context) {
	if f.cache == nil {
		return
	}

	ns, unread, err := f.cache.LoadFeed(ctx)
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.state != StateIdle || len(f.notifications) > 0 {
		return
	}
	f.notifications = ns
	f.unread = unread
}

// Refresh fetches the most recent page and the unread count concurrently
// and replaces the in-memory feed and count atomically, both-or-neither.
// On failure the prior state is left untouched and the feed returns to
// Idle. A refresh that resolves after the feed is closed, or after a newer
// refresh was dispatched, is discarded.
func (f *Feed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.dispatched++
	v := f.dispatched
	f.state = StateLoading
	f.mu.Unlock()

	var (
		page     *api.NotificationPage
		count    int
		pageErr  error
		countErr error
		wg       gosync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		page, pageErr = f.api.ListNotifications(ctx, api.ListOptions{
			Page:     1,
			PageSize: f.pageSize,
		})
	}()
	go func() {
		defer wg.Done()
		count, countErr = f.api.UnreadCount(ctx)
	}()
	wg.Wait()

	if pageErr != nil || countErr != nil {
		f.mu.Lock()
		if !f.closed && v == f.dispatched {
			f.state = StateIdle
		}
		f.mu.Unlock()

		if pageErr != nil {
			return pageErr
		}
		return countErr
	}

	f.mu.Lock()
	if f.closed || v != f.dispatched {
		f.mu.Unlock()
		return nil
	}

	ns := append([]model.Notification(nil), page.Results...)

	// Re-apply local mutations this refresh could not have known about.
	if f.allReadAt >= v {
		for i := range ns {
			ns[i].IsRead = true
		}
		count = 0
	} else {
		f.allReadAt = 0
	}
	for id, markedAt := range f.localReads {
		if markedAt < v {
			// The mark landed before this refresh was dispatched;
			// the server response already reflects it.
			delete(f.localReads, id)
			continue
		}
		for i := range ns {
			if ns[i].ID == id && !ns[i].IsRead {
				ns[i].IsRead = true
				if count > 0 {
					count--
				}
			}
		}
	}

	f.notifications = ns
	f.unread = count
	f.state = StateLoaded
	f.fetchedAt = time.Now()
	cache := f.cache

	// The cache write runs outside the lock, so it gets its own copy:
	// a MarkRead landing mid-write mutates f.notifications in place.
	var cached []model.Notification
	if cache != nil {
		cached = append([]model.Notification(nil), ns...)
	}
	f.mu.Unlock()

	if cache != nil {
		_ = cache.SaveFeed(ctx, cached, count)
	}

	return nil
}

// MarkRead optimistically flips the notification's read flag and decrements
// the unread count, floored at zero, then issues the cache and server
// writes without waiting for confirmation. A server-side failure is not
// rolled back; the next poll resolves the discrepancy.
func (f *Feed) MarkRead(id int64) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}

	flipped := false
	for i := range f.notifications {
		if f.notifications[i].ID != id {
			continue
		}
		if !f.notifications[i].IsRead {
			f.notifications[i].IsRead = true
			flipped = true
			if f.unread > 0 {
				f.unread--
			}
		}
		break
	}
	if flipped {
		f.localReads[id] = f.dispatched
	}
	cache := f.cache
	f.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), markTimeout)
		defer cancel()
		if flipped && cache != nil {
			_ = cache.MarkRead(ctx, id)
		}
		_ = f.api.MarkRead(ctx, id)
	}()
}

// MarkAllRead issues the bulk mark-all request and waits for the server.
// On success every local notification is flipped and the count zeroed; on
// failure local state is untouched and the error is returned so the UI can
// surface it. This is the one mark path with a visible failure affordance.
func (f *Feed) MarkAllRead(ctx context.Context) error {
	if err := f.api.MarkAllRead(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	for i := range f.notifications {
		f.notifications[i].IsRead = true
	}
	f.unread = 0
	f.allReadAt = f.dispatched
	cache := f.cache
	f.mu.Unlock()

	if cache != nil {
		_ = cache.MarkAllRead(ctx)
	}

	return nil
}

// Snapshot returns a copy of the current feed contents and state.
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	return Snapshot{
		State:         f.state,
		Notifications: append([]model.Notification(nil), f.notifications...),
		UnreadCount:   f.unread,
		FetchedAt:     f.fetchedAt,
	}
}

// Close marks the feed disposed. Every later mutation, and the resolution
// of any request still in flight, becomes a no-op. Close is idempotent.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}
