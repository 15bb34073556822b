package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"github.com/hvu/crmdesk/internal/model"
)

const (
	serviceName = "crmdesk"
	sessionKey  = "session"
)

// KeyringStorage persists the session as a JSON blob under a fixed key in
// the system keyring, so the bearer token never touches a plain file.
type KeyringStorage struct{}

// NewKeyringStorage returns a Storage backed by the system keyring.
func NewKeyringStorage() *KeyringStorage {
	return &KeyringStorage{}
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/crmdesk/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("crmdesk-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Load reads and deserializes the persisted session.
func (k *KeyringStorage) Load() (model.Session, bool, error) {
	ring, err := openKeyring()
	if err != nil {
		return model.Session{}, false, err
	}

	item, err := ring.Get(sessionKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return model.Session{}, false, nil
		}
		return model.Session{}, false, fmt.Errorf("reading session: %w", err)
	}

	var s model.Session
	if err := json.Unmarshal(item.Data, &s); err != nil {
		// A corrupt blob is treated as no session rather than a hard
		// failure that blocks startup.
		return model.Session{}, false, nil
	}

	return s, true, nil
}

// Save serializes the session and writes it under the session key.
func (k *KeyringStorage) Save(s model.Session) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("serializing session: %w", err)
	}

	if err := ring.Set(keyring.Item{Key: sessionKey, Data: data}); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}

	return nil
}

// Clear removes the persisted session.
func (k *KeyringStorage) Clear() error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(sessionKey); err != nil &&
		!errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("removing session: %w", err)
	}

	return nil
}
