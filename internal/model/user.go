package model

import (
	"encoding/json"
	"fmt"
)

// User is the identity record for the signed-in CRM account.
// It is replaced wholesale on every update, never partially mutated.
type User struct {
	// ID is the backend's unique identifier for this account.
	ID int64 `json:"id"`

	// Email is the account's login address.
	Email string `json:"email"`

	// Name is the display name shown in the UI.
	Name string `json:"name,omitempty"`

	// Attributes holds free-form extra fields returned by the backend
	// (e.g., organization, avatar URL).
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Role is an ordered list of role names. The backend sends either a single
// role name or a list; both decode into the same representation.
type Role []string

// UnmarshalJSON accepts either a scalar role name or an array of names.
func (r *Role) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*r = nil
		} else {
			*r = Role{single}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("parsing role: %w", err)
	}
	*r = Role(many)
	return nil
}

// Has reports whether the role list contains the given role name.
func (r Role) Has(name string) bool {
	for _, n := range r {
		if n == name {
			return true
		}
	}
	return false
}

// Primary returns the first role name, or "" when no role is set.
func (r Role) Primary() string {
	if len(r) == 0 {
		return ""
	}
	return r[0]
}

// Session is the client-held record of the current authenticated identity
// and credential. IsAuthenticated is derived: it is true only while both
// User and Token are present.
type Session struct {
	User            *User  `json:"user,omitempty"`
	Token           string `json:"token,omitempty"`
	Role            Role   `json:"role,omitempty"`
	IsAuthenticated bool   `json:"is_authenticated"`
}
