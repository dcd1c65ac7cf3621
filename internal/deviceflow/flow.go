// Package deviceflow implements the device authorization grant driven by the
// identity provider: device code issuance, user approval and client polling.
package deviceflow

import (
	"context"
	"fmt"
	"time"

	"github.com/platform-labs/deviceauth/internal/validation"
)

const (
	// DefaultCodeExpiry is the session validity window when none is configured
	DefaultCodeExpiry = 10 * time.Minute

	// DefaultPollInterval is the poll interval suggested to clients
	DefaultPollInterval = 2 * time.Second

	// maxUserCodeAttempts bounds user code regeneration when a freshly
	// generated code collides with an active session
	maxUserCodeAttempts = 10
)

// Flow manages device authorization sessions on top of a Store
type Flow struct {
	store           Store
	verificationURI string
	codeExpiry      time.Duration
	pollInterval    time.Duration
	now             func() time.Time
}

// NewFlow creates a device flow manager. baseURL is the externally
// reachable address of the identity provider; the activation page is
// served under it.
func NewFlow(store Store, baseURL string, opts ...Option) *Flow {
	f := &Flow{
		store:           store,
		verificationURI: baseURL + "/activate",
		codeExpiry:      DefaultCodeExpiry,
		pollInterval:    DefaultPollInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// VerificationURI returns the browser address where user codes are entered
func (f *Flow) VerificationURI() string {
	return f.verificationURI
}

// Interval returns the suggested poll interval in whole seconds
func (f *Flow) Interval() int {
	return int(f.pollInterval.Seconds())
}

// RequestDeviceCode starts a new authorization session. The returned session
// is pending until the user approves it via the activation form.
func (f *Flow) RequestDeviceCode(ctx context.Context) (*Session, error) {
	deviceCode, err := generateDeviceCode()
	if err != nil {
		return nil, err
	}

	userCode, err := f.generateUniqueUserCode(ctx)
	if err != nil {
		return nil, err
	}

	now := f.now()
	session := &Session{
		DeviceCode: deviceCode,
		UserCode:   userCode,
		CreatedAt:  now,
		ExpiresAt:  now.Add(f.codeExpiry),
	}

	if err := f.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	return session, nil
}

// Approve marks the session matching userCode as approved and records the
// chosen identity. Approving an already approved session re-confirms it
// without overwriting the recorded identity.
func (f *Flow) Approve(ctx context.Context, userCode, subject, team string) (*Session, error) {
	if err := validation.ValidateUserCode(userCode); err != nil {
		return nil, ErrInvalidUserCode
	}

	session, err := f.store.GetSessionByUserCode(ctx, validation.NormalizeCode(userCode))
	if err != nil {
		return nil, fmt.Errorf("looking up user code: %w", err)
	}
	if session == nil {
		return nil, ErrInvalidUserCode
	}
	if session.Expired(f.now()) {
		return nil, ErrExpiredCode
	}
	if session.Approved {
		return session, nil
	}

	session.Approved = true
	session.Subject = subject
	session.Team = team

	if err := f.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("saving approval: %w", err)
	}

	return session, nil
}

// CheckDeviceCode reports the state of a polled device code. It returns the
// approved session, or ErrInvalidDeviceCode, ErrExpiredCode or
// ErrPendingAuthorization describing why no token can be issued yet.
func (f *Flow) CheckDeviceCode(ctx context.Context, deviceCode string) (*Session, error) {
	session, err := f.store.GetSession(ctx, deviceCode)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if session == nil {
		return nil, ErrInvalidDeviceCode
	}
	if session.Expired(f.now()) {
		return nil, ErrExpiredCode
	}
	if !session.Approved {
		return nil, ErrPendingAuthorization
	}
	return session, nil
}

// CheckHealth verifies the flow manager's storage backend is healthy
func (f *Flow) CheckHealth(ctx context.Context) error {
	return f.store.CheckHealth(ctx)
}

// generateUniqueUserCode draws user codes until one does not collide with
// an active session. Short numeric codes make collisions likely enough at
// scale that silently accepting one would let an approval land on the
// wrong session.
func (f *Flow) generateUniqueUserCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxUserCodeAttempts; attempt++ {
		code, err := generateUserCode()
		if err != nil {
			return "", err
		}

		existing, err := f.store.GetSessionByUserCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking user code: %w", err)
		}
		if existing == nil || existing.Expired(f.now()) {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique user code after %d attempts", maxUserCodeAttempts)
}
