package session

import (
	gosync "sync"

	"github.com/hvu/crmdesk/internal/model"
)

// Store is the single source of truth for who is logged in. It is an
// explicitly-owned, injectable container: every consumer receives a handle
// rather than reaching for a package-level singleton, so tests can run
// isolated instances side by side.
//
// Mutations are pure state transitions and never fail. Each one persists
// the session to the configured Storage; persistence errors are swallowed
// because a failed write only costs the restore-on-restart convenience.
type Store struct {
	mu      gosync.RWMutex
	storage Storage
	s       model.Session
}

// NewStore creates a session store backed by the given storage and restores
// the last persisted session, if any. A load failure yields an empty
// session; staleness is only ever detected by the backend rejecting a
// subsequent authenticated request.
func NewStore(storage Storage) *Store {
	st := &Store{storage: storage}

	if s, ok, err := storage.Load(); err == nil && ok {
		st.s = s
		st.s.IsAuthenticated = s.User != nil && s.Token != ""
	}

	return st
}

// SetAuth replaces the user, token, and role in one transition and marks
// the session authenticated. Token format is not validated; any non-empty
// string is accepted.
func (st *Store) SetAuth(user model.User, token string, role model.Role) {
	st.mu.Lock()
	defer st.mu.Unlock()

	u := user
	st.s = model.Session{
		User:            &u,
		Token:           token,
		Role:            role,
		IsAuthenticated: true,
	}
	st.persist()
}

// SetUser replaces the user wholesale and recomputes IsAuthenticated from
// the new user and the existing token.
func (st *Store) SetUser(user *model.User) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.s.User = user
	st.s.IsAuthenticated = st.s.User != nil && st.s.Token != ""
	st.persist()
}

// SetToken replaces the token and recomputes IsAuthenticated from the
// existing user and the new token.
func (st *Store) SetToken(token string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.s.Token = token
	st.s.IsAuthenticated = st.s.User != nil && st.s.Token != ""
	st.persist()
}

// SetRole replaces the role only. IsAuthenticated is unaffected.
func (st *Store) SetRole(role model.Role) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.s.Role = role
	st.persist()
}

// ClearAuth resets the session entirely. It is idempotent: clearing an
// already-empty session is a no-op with the same outcome.
func (st *Store) ClearAuth() {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.s = model.Session{}
	st.persist()
}

// Session returns a copy of the current session state.
func (st *Store) Session() model.Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s := st.s
	if st.s.User != nil {
		u := *st.s.User
		s.User = &u
	}
	if st.s.Role != nil {
		s.Role = append(model.Role(nil), st.s.Role...)
	}
	return s
}

// Token returns the current bearer token, or "" when signed out. It
// satisfies the API client's token source interface so token refreshes
// flow into outbound requests without rewiring.
func (st *Store) Token() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.Token
}

// IsAuthenticated reports whether both a user and a token are present.
func (st *Store) IsAuthenticated() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.IsAuthenticated
}

// persist writes the current session to storage. Callers must hold st.mu.
func (st *Store) persist() {
	if st.storage == nil {
		return
	}
	_ = st.storage.Save(st.s)
}
