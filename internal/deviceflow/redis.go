// Package deviceflow implements device session storage with Redis
package deviceflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix  = "deviceauth:session:"
	userCodePrefix = "deviceauth:user:"
)

// RedisStore implements Store using Redis. Session keys live for the
// validity window plus the retention grace, while user code index keys
// expire with the session so user codes free up for reuse immediately.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// RedisOption configures a RedisStore
type RedisOption func(*RedisStore)

// WithRedisRetention sets how long expired sessions remain queryable
func WithRedisRetention(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.retention = d
	}
}

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckHealth verifies Redis connectivity
func (s *RedisStore) CheckHealth(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// SaveSession stores a session under both its device code and user code
func (s *RedisStore) SaveSession(ctx context.Context, session *Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session has already expired")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, sessionPrefix+session.DeviceCode, data, ttl+s.retention)
	pipe.Set(ctx, userCodePrefix+session.UserCode, session.DeviceCode, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by device code, or (nil, nil) if unknown
func (s *RedisStore) GetSession(ctx context.Context, deviceCode string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionPrefix+deviceCode).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	return &session, nil
}

// GetSessionByUserCode retrieves a session by normalized user code
func (s *RedisStore) GetSessionByUserCode(ctx context.Context, userCode string) (*Session, error) {
	deviceCode, err := s.client.Get(ctx, userCodePrefix+userCode).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting user code reference: %w", err)
	}
	return s.GetSession(ctx, deviceCode)
}

// DeleteSession removes a session and its user code index entry
func (s *RedisStore) DeleteSession(ctx context.Context, deviceCode string) error {
	session, err := s.GetSession(ctx, deviceCode)
	if err != nil {
		return fmt.Errorf("getting session: %w", err)
	}
	if session == nil {
		return nil // Already deleted
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, sessionPrefix+deviceCode)
	pipe.Del(ctx, userCodePrefix+session.UserCode)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
