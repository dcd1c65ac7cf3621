// Package csrf provides CSRF protection for the activation form
package csrf

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidToken indicates a missing or invalid CSRF token
	ErrInvalidToken = errors.New("invalid csrf token")

	// ErrTokenExpired indicates the CSRF token has expired
	ErrTokenExpired = errors.New("csrf token expired")
)

// Store provides token storage operations
type Store interface {
	// SaveToken stores a CSRF token with expiry
	SaveToken(ctx context.Context, token string, expiresIn time.Duration) error

	// ValidateToken checks if a token exists and is valid
	ValidateToken(ctx context.Context, token string) error

	// CheckHealth verifies the store is operational
	CheckHealth(ctx context.Context) error
}

// Manager handles CSRF token generation and validation. Tokens are random
// values signed with an HMAC so forgeries are rejected before the store
// is consulted.
type Manager struct {
	store     Store
	secret    []byte
	expiresIn time.Duration
}

// NewManager creates a new CSRF token manager
func NewManager(store Store, secret []byte, expiresIn time.Duration) *Manager {
	return &Manager{
		store:     store,
		secret:    secret,
		expiresIn: expiresIn,
	}
}

// GenerateToken creates and stores a new CSRF token
func (m *Manager) GenerateToken(ctx context.Context) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}

	token := base64.URLEncoding.EncodeToString(tokenBytes)
	fullToken := token + "." + base64.URLEncoding.EncodeToString(m.sign(token))

	if err := m.store.SaveToken(ctx, fullToken, m.expiresIn); err != nil {
		return "", fmt.Errorf("saving token: %w", err)
	}

	return fullToken, nil
}

// ValidateToken checks if a token is authentic and still stored
func (m *Manager) ValidateToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return ErrInvalidToken
	}

	actualSig, err := base64.URLEncoding.DecodeString(parts[1])
	if err != nil {
		return ErrInvalidToken
	}
	if !hmac.Equal(m.sign(parts[0]), actualSig) {
		return ErrInvalidToken
	}

	if err := m.store.ValidateToken(ctx, token); err != nil {
		return err
	}

	return nil
}

// CheckHealth verifies the CSRF manager is operational
func (m *Manager) CheckHealth(ctx context.Context) error {
	if err := m.store.CheckHealth(ctx); err != nil {
		return fmt.Errorf("csrf store health check failed: %w", err)
	}
	return nil
}

func (m *Manager) sign(token string) []byte {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(token))
	return h.Sum(nil)
}
