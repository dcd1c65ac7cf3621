package deviceflow

import "time"

// Session tracks one device authorization from code issuance until the
// client exchanges it for a token or it expires. A session is created
// pending and is mutated exactly once, when the user approves it.
type Session struct {
	DeviceCode string `json:"device_code"`
	UserCode   string `json:"user_code"`

	// Approval state, populated by the activation form
	Approved bool   `json:"approved"`
	Subject  string `json:"subject,omitempty"`
	Team     string `json:"team,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its validity window.
// An expired session is unusable regardless of approval state.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ExpiresIn returns the remaining validity in whole seconds, never negative
func (s *Session) ExpiresIn(now time.Time) int {
	remaining := int(s.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
