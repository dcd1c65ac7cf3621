package csrf

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process table for single-node
// deployments that run without Redis
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time // token -> expiry
}

// NewMemoryStore creates an in-memory CSRF token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]time.Time),
	}
}

// SaveToken stores a CSRF token with expiry
func (s *MemoryStore) SaveToken(ctx context.Context, token string, expiresIn time.Duration) error {
	if token == "" {
		return errors.New("empty token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Tokens are short-lived; drop the stale ones on each save rather
	// than running a dedicated janitor
	now := time.Now()
	for t, expiry := range s.tokens {
		if now.After(expiry) {
			delete(s.tokens, t)
		}
	}

	s.tokens[token] = now.Add(expiresIn)
	return nil
}

// ValidateToken checks if a token exists and has not expired
func (s *MemoryStore) ValidateToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	s.mu.Lock()
	expiry, exists := s.tokens[token]
	s.mu.Unlock()

	if !exists {
		return ErrInvalidToken
	}
	if time.Now().After(expiry) {
		return ErrTokenExpired
	}
	return nil
}

// CheckHealth reports the store as always available
func (s *MemoryStore) CheckHealth(ctx context.Context) error {
	return nil
}
