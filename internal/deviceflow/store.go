package deviceflow

import "context"

// Store defines the interface for device session storage. The session table
// is owned exclusively by the identity provider; implementations serialize
// concurrent access and return (nil, nil) for unknown codes.
type Store interface {
	// SaveSession stores a session keyed by its device code
	SaveSession(ctx context.Context, session *Session) error

	// GetSession retrieves a session by device code
	GetSession(ctx context.Context, deviceCode string) (*Session, error)

	// GetSessionByUserCode retrieves a session by its normalized user code
	GetSessionByUserCode(ctx context.Context, userCode string) (*Session, error)

	// DeleteSession removes a session and its user code index entry
	DeleteSession(ctx context.Context, deviceCode string) error

	// CheckHealth verifies the storage backend is healthy
	CheckHealth(ctx context.Context) error
}
