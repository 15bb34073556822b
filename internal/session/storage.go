package session

import (
	gosync "sync"

	"github.com/hvu/crmdesk/internal/model"
)

// Storage persists the serialized session under a single namespaced key so
// that a restart restores the last known session without a network round
// trip.
type Storage interface {
	// Load reads the persisted session. The second return value is false
	// when no session has been saved yet.
	Load() (model.Session, bool, error)

	// Save writes the session, replacing any previous value.
	Save(s model.Session) error

	// Clear removes the persisted session. Clearing an absent session
	// is not an error.
	Clear() error
}

// MemoryStorage is an in-memory Storage for tests and for running without
// a system keyring; nothing outlives the process.
type MemoryStorage struct {
	mu      gosync.Mutex
	session model.Session
	present bool
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load returns the stored session, if any.
func (m *MemoryStorage) Load() (model.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.present, nil
}

// Save stores the session.
func (m *MemoryStorage) Save(s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	m.present = true
	return nil
}

// Clear removes the stored session.
func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = model.Session{}
	m.present = false
	return nil
}
