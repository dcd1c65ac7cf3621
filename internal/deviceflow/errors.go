package deviceflow

import "errors"

// Errors surfaced while driving the device authorization flow
var (
	// ErrInvalidDeviceCode indicates an unknown device code
	ErrInvalidDeviceCode = errors.New("invalid device code")

	// ErrInvalidUserCode indicates a user code matching no active session
	ErrInvalidUserCode = errors.New("invalid user code")

	// ErrPendingAuthorization indicates the user has not approved yet.
	// Clients treat this as a retry signal, not a failure.
	ErrPendingAuthorization = errors.New("authorization pending")

	// ErrExpiredCode indicates the session's validity window has passed
	ErrExpiredCode = errors.New("code expired")
)
