package app

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hvu/crmdesk/internal/api"
	"github.com/hvu/crmdesk/internal/feed"
	"github.com/hvu/crmdesk/internal/keys"
	"github.com/hvu/crmdesk/internal/model"
	"github.com/hvu/crmdesk/internal/session"
	appsync "github.com/hvu/crmdesk/internal/sync"
	"github.com/hvu/crmdesk/internal/ui"
	"github.com/hvu/crmdesk/internal/ui/bell"
	"github.com/hvu/crmdesk/internal/ui/feedview"
	helpview "github.com/hvu/crmdesk/internal/ui/help"
	loginview "github.com/hvu/crmdesk/internal/ui/login"
)

// requestTimeout bounds one-shot requests issued from the app model
// (profile revalidation, logout).
const requestTimeout = 15 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewFeed
	ViewHelp
)

// cachedFeedMsg carries the offline feed snapshot loaded at startup.
type cachedFeedMsg struct {
	snapshot feed.Snapshot
}

// profileMsg carries the result of revalidating a restored session.
type profileMsg struct {
	user *model.User
	err  error
}

// logoutDoneMsg signals the server-side logout call finished.
type logoutDoneMsg struct {
	err error
}

// clearNoticeMsg expires the transient status bar notice.
type clearNoticeMsg struct{}

// Model is the root Bubble Tea model that manages view routing, the
// session lifecycle, and the notification poller.
type Model struct {
	currentView  ViewState
	previousView ViewState
	frame        ui.Frame
	keys         *keys.KeyMap

	session *session.Store
	client  *api.Client
	feed    *feed.Feed
	poller  *appsync.Poller

	feedView  feedview.Model
	loginView loginview.Model
	helpView  helpview.Model

	baseURL string
	ready   bool
	notice  string
}

// New creates the root application model. When a persisted session was
// restored it opens on the feed and revalidates the session in the
// background; otherwise it opens on the login form.
func New(
	sess *session.Store,
	client *api.Client,
	f *feed.Feed,
	p *appsync.Poller,
	baseURL string,
) Model {
	k := keys.DefaultKeyMap()

	initial := ViewLogin
	if sess.IsAuthenticated() {
		initial = ViewFeed
	}

	return Model{
		currentView: initial,
		keys:        k,
		session:     sess,
		client:      client,
		feed:        f,
		poller:      p,
		feedView:    feedview.New(f, k, 80, 24),
		loginView:   loginview.New(client, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// Init returns the initial commands for the starting view.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewFeed {
		return tea.Batch(
			m.loadCachedFeed(),
			m.checkProfile(),
			m.poller.Start(),
		)
	}
	return m.loginView.Init()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.frame = ui.NewFrame(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.frame.Width
		contentHeight := m.frame.ContentHeight()
		m.feedView.SetSize(contentWidth, contentHeight)
		m.loginView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		// Forward to the active view so huh forms can lay themselves out.
		return m.updateActiveView(msg)

	case cachedFeedMsg:
		m.feedView.SetSnapshot(msg.snapshot)
		return m, nil

	case profileMsg:
		if msg.err != nil {
			if api.IsAuthError(msg.err) {
				return m.signOut("Session expired, please sign in again")
			}
			// Backend unreachable; the cached feed stays visible and the
			// poller keeps retrying on schedule.
			return m, nil
		}
		m.session.SetUser(msg.user)
		return m, nil

	case loginview.ResultMsg:
		if msg.Err != nil {
			var cmd tea.Cmd
			m.loginView, cmd = m.loginView.Update(msg)
			return m, cmd
		}
		m.session.SetAuth(msg.Result.User, msg.Result.Token, msg.Result.Role)
		m.currentView = ViewFeed
		return m, m.poller.Start()

	case appsync.RefreshedMsg:
		if msg.Err != nil && api.IsAuthError(msg.Err) {
			return m.signOut("Session expired, please sign in again")
		}
		m.feedView.SetSnapshot(msg.Snapshot)
		return m, m.poller.WaitForNextResult()

	case feedview.OpenEntityMsg:
		m.notice = "→ " + m.baseURL + msg.Path
		return m, m.scheduleNoticeClear()

	case feedview.RefreshRequestedMsg:
		return m, m.poller.TriggerRefresh()

	case logoutDoneMsg:
		// Local sign-out already happened; the server call is best-effort.
		if msg.err != nil {
			m.notice = "Signed out locally; server logout failed"
			return m, m.scheduleNoticeClear()
		}
		return m, nil

	case clearNoticeMsg:
		m.notice = ""
		return m, nil

	case tea.KeyMsg:
		if handled, model, cmd := m.handleGlobalKeys(msg); handled {
			return model, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKeys processes keys that apply regardless of the active view.
// The login form owns all text input, so only ctrl-bound keys are global
// while it is focused.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return true, m, m.quit()
	}

	if m.currentView == ViewLogin {
		return false, m, nil
	}

	switch msg.String() {
	case "q":
		if m.currentView == ViewFeed {
			return true, m, m.quit()
		}

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return true, m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return true, m, nil

	case "esc":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return true, m, nil
		}

	case "ctrl+l":
		if m.currentView == ViewFeed {
			model, cmd := m.logout()
			return true, model, cmd
		}
	}

	return false, m, nil
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewFeed:
		m.feedView, cmd = m.feedView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI inside the frame chrome.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.frame.Header(m.headerTitle(), m.headerBadge())
	content := m.renderContent()
	statusBar := m.frame.StatusBar(m.notice, m.keyHints())

	return m.frame.Compose(header, content, statusBar)
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewFeed:
		return m.feedView.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// headerTitle shows the application name and, when known, who is signed in.
func (m Model) headerTitle() string {
	s := m.session.Session()
	if s.User == nil {
		return "CRM Desk"
	}
	name := s.User.Name
	if name == "" {
		name = s.User.Email
	}
	return "CRM Desk — " + name
}

// headerBadge shows the unread bell on authenticated views.
func (m Model) headerBadge() string {
	if m.currentView == ViewLogin {
		return ""
	}
	return bell.Badge(m.feed.Snapshot())
}

// keyHints returns the status bar key hints for the current view.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		return "enter submit | ctrl+c quit"
	case ViewHelp:
		return "? close help | esc back"
	default:
		return "q quit | ? help | enter open | m mark read | M mark all | r refresh"
	}
}

// loadCachedFeed seeds the feed from the offline cache before the first
// poll lands.
func (m Model) loadCachedFeed() tea.Cmd {
	f := m.feed
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		f.LoadCached(ctx)
		return cachedFeedMsg{snapshot: f.Snapshot()}
	}
}

// checkProfile revalidates a restored session against the backend.
func (m Model) checkProfile() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		user, err := c.Profile(ctx)
		return profileMsg{user: user, err: err}
	}
}

// logout signs out locally first, then notifies the server best-effort.
// The local session is cleared no matter what the server says.
func (m Model) logout() (tea.Model, tea.Cmd) {
	c := m.client

	m.poller.Stop()
	m.session.ClearAuth()
	m.feedView.SetSnapshot(feed.Snapshot{})
	m.currentView = ViewLogin
	m.loginView = loginview.New(m.client, m.frame.Width, m.frame.ContentHeight())

	return m, tea.Batch(
		m.loginView.Init(),
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			return logoutDoneMsg{err: c.Logout(ctx)}
		},
	)
}

// signOut clears the session after the backend rejected it and returns to
// the login form with a notice. No server call is made; the token is
// already invalid.
func (m Model) signOut(notice string) (tea.Model, tea.Cmd) {
	m.poller.Stop()
	m.session.ClearAuth()
	m.feedView.SetSnapshot(feed.Snapshot{})
	m.currentView = ViewLogin
	m.loginView = loginview.New(m.client, m.frame.Width, m.frame.ContentHeight())
	m.notice = notice

	return m, tea.Batch(m.loginView.Init(), m.scheduleNoticeClear())
}

// quit stops background work before exiting.
func (m Model) quit() tea.Cmd {
	m.poller.Stop()
	m.feed.Close()
	return tea.Quit
}

// scheduleNoticeClear expires the status bar notice after a few seconds.
func (m Model) scheduleNoticeClear() tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return clearNoticeMsg{}
	})
}
