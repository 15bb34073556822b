package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hvu/crmdesk/internal/feed"
)

// RefreshedMsg is a tea.Msg sent when a feed refresh completes, whether it
// succeeded or not. On failure the snapshot still carries the retained
// last-known data.
type RefreshedMsg struct {
	Snapshot feed.Snapshot
	Err      error
}

// fetchTimeout is the maximum time allowed for a single refresh cycle.
const fetchTimeout = 30 * time.Second

// defaultInterval is used when no poll interval is configured.
const defaultInterval = 30 * time.Second

// Poller drives periodic refreshes of a notification feed. It is an
// explicit handle: the owner that starts it is responsible for stopping it,
// so no background work outlives the view that mounted it.
type Poller struct {
	feed      *feed.Feed
	interval  time.Duration
	resultCh  chan RefreshedMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// New creates a new Poller over the given feed.
func New(f *feed.Feed, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{
		feed:      f,
		interval:  interval,
		resultCh:  make(chan RefreshedMsg, 16),
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the polling goroutine and returns a subscription command
// that delivers RefreshedMsg messages to the Bubble Tea runtime. Starting
// an already-running poller is a no-op: the timer is never scheduled twice.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	go p.loop(stop)

	return p.waitForResult()
}

// Stop halts the polling goroutine. No tick fires after Stop returns.
// Stopping an already-stopped poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// TriggerRefresh requests an immediate refresh outside the tick schedule.
func (p *Poller) TriggerRefresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A refresh is already pending; skip to avoid blocking.
	}
	return nil
}

// loop runs the polling schedule until stop is closed. The first refresh
// happens immediately so the view is not empty for a full interval.
func (p *Poller) loop(stop chan struct{}) {
	p.refresh()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.refresh()
		case <-p.triggerCh:
			p.refresh()
		}
	}
}

// refresh performs one refresh cycle and publishes the outcome.
func (p *Poller) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	err := p.feed.Refresh(ctx)
	p.sendResult(RefreshedMsg{Snapshot: p.feed.Snapshot(), Err: err})
}

// sendResult sends a RefreshedMsg on the result channel without blocking.
func (p *Poller) sendResult(msg RefreshedMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if the channel is full to avoid blocking the poller.
	}
}

// waitForResult returns a tea.Cmd that waits for the next result from
// the result channel.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh
// result. Call this after processing a RefreshedMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
