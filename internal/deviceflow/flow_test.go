package deviceflow

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"
)

func newTestFlow(t *testing.T, opts ...Option) (*Flow, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	t.Cleanup(store.Close)

	base := []Option{WithCodeExpiry(10 * time.Minute), WithPollInterval(2 * time.Second)}
	return NewFlow(store, "http://127.0.0.1:8081", append(base, opts...)...), store
}

func TestRequestDeviceCode(t *testing.T) {
	ctx := context.Background()
	flow, store := newTestFlow(t)

	session, err := flow.RequestDeviceCode(ctx)
	if err != nil {
		t.Fatalf("RequestDeviceCode: %v", err)
	}

	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(session.DeviceCode) {
		t.Errorf("device code %q is not 64 hex chars", session.DeviceCode)
	}
	if !regexp.MustCompile(`^[0-9]{6}$`).MatchString(session.UserCode) {
		t.Errorf("user code %q is not 6 digits", session.UserCode)
	}
	if session.Approved {
		t.Error("new session must start pending")
	}
	if remaining := time.Until(session.ExpiresAt); remaining < 9*time.Minute || remaining > 10*time.Minute {
		t.Errorf("unexpected expiry window: %v", remaining)
	}
	if flow.VerificationURI() != "http://127.0.0.1:8081/activate" {
		t.Errorf("unexpected verification URI %q", flow.VerificationURI())
	}
	if flow.Interval() != 2 {
		t.Errorf("expected interval 2, got %d", flow.Interval())
	}

	stored, err := store.GetSession(ctx, session.DeviceCode)
	if err != nil || stored == nil {
		t.Fatalf("session not stored: %v", err)
	}
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		userCode func(s *Session) string
		expire   bool
		wantErr  error
	}{
		{
			name:     "matching code approves",
			userCode: func(s *Session) string { return s.UserCode },
		},
		{
			name:     "display format accepted",
			userCode: func(s *Session) string { return s.UserCode[:3] + "-" + s.UserCode[3:] },
		},
		{
			name:     "unknown code",
			userCode: func(s *Session) string { return "999999" },
			wantErr:  ErrInvalidUserCode,
		},
		{
			name:     "malformed code",
			userCode: func(s *Session) string { return "abc" },
			wantErr:  ErrInvalidUserCode,
		},
		{
			name:     "expired session",
			userCode: func(s *Session) string { return s.UserCode },
			expire:   true,
			wantErr:  ErrExpiredCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Now()
			clock := &now
			flow, _ := newTestFlow(t, withClock(func() time.Time { return *clock }))

			session, err := flow.RequestDeviceCode(ctx)
			if err != nil {
				t.Fatalf("RequestDeviceCode: %v", err)
			}
			// The test may collide with the fixed unknown-code input
			if session.UserCode == "999999" {
				t.Skip("generated code collides with test fixture")
			}

			if tt.expire {
				later := now.Add(11 * time.Minute)
				clock = &later
			}

			approved, err := flow.Approve(ctx, tt.userCode(session), "ajay", "platform-team")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Approve error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Approve: %v", err)
			}
			if !approved.Approved || approved.Subject != "ajay" || approved.Team != "platform-team" {
				t.Errorf("unexpected approval state: %+v", approved)
			}
		})
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	flow, _ := newTestFlow(t)

	session, err := flow.RequestDeviceCode(ctx)
	if err != nil {
		t.Fatalf("RequestDeviceCode: %v", err)
	}

	if _, err := flow.Approve(ctx, session.UserCode, "ajay", "platform-team"); err != nil {
		t.Fatalf("first Approve: %v", err)
	}

	// A second approval re-confirms without overwriting the identity
	again, err := flow.Approve(ctx, session.UserCode, "mallory", "payments-team")
	if err != nil {
		t.Fatalf("second Approve: %v", err)
	}
	if again.Subject != "ajay" || again.Team != "platform-team" {
		t.Errorf("re-approval overwrote identity: %+v", again)
	}
}

func TestCheckDeviceCode(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	clock := &now
	flow, _ := newTestFlow(t, withClock(func() time.Time { return *clock }))

	session, err := flow.RequestDeviceCode(ctx)
	if err != nil {
		t.Fatalf("RequestDeviceCode: %v", err)
	}

	// Pending on every poll until approval
	for i := 0; i < 3; i++ {
		if _, err := flow.CheckDeviceCode(ctx, session.DeviceCode); !errors.Is(err, ErrPendingAuthorization) {
			t.Fatalf("poll %d: error = %v, want ErrPendingAuthorization", i, err)
		}
	}

	if _, err := flow.CheckDeviceCode(ctx, "no-such-code"); !errors.Is(err, ErrInvalidDeviceCode) {
		t.Fatalf("unknown code: error = %v, want ErrInvalidDeviceCode", err)
	}

	if _, err := flow.Approve(ctx, session.UserCode, "ajay", "platform-team"); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	approved, err := flow.CheckDeviceCode(ctx, session.DeviceCode)
	if err != nil {
		t.Fatalf("CheckDeviceCode after approval: %v", err)
	}
	if approved.Subject != "ajay" || approved.Team != "platform-team" {
		t.Errorf("unexpected claims: %+v", approved)
	}

	// Expiry wins even though the session was approved before it
	later := now.Add(11 * time.Minute)
	clock = &later
	if _, err := flow.CheckDeviceCode(ctx, session.DeviceCode); !errors.Is(err, ErrExpiredCode) {
		t.Fatalf("expired poll: error = %v, want ErrExpiredCode", err)
	}
}

func TestConcurrentApproveAndPoll(t *testing.T) {
	ctx := context.Background()
	flow, _ := newTestFlow(t)

	session, err := flow.RequestDeviceCode(ctx)
	if err != nil {
		t.Fatalf("RequestDeviceCode: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = flow.CheckDeviceCode(ctx, session.DeviceCode)
		}()
		go func() {
			defer wg.Done()
			_, _ = flow.Approve(ctx, session.UserCode, "ajay", "platform-team")
		}()
	}
	wg.Wait()

	approved, err := flow.CheckDeviceCode(ctx, session.DeviceCode)
	if err != nil {
		t.Fatalf("final poll: %v", err)
	}
	if approved.Subject != "ajay" {
		t.Errorf("unexpected subject %q", approved.Subject)
	}
}

// collisionStore reports an active session for every user code until the
// configured number of lookups has happened
type collisionStore struct {
	*MemoryStore
	collisions int
	lookups    int
}

func (c *collisionStore) GetSessionByUserCode(ctx context.Context, userCode string) (*Session, error) {
	c.lookups++
	if c.lookups <= c.collisions {
		return &Session{
			DeviceCode: "occupied",
			UserCode:   userCode,
			ExpiresAt:  time.Now().Add(time.Minute),
		}, nil
	}
	return c.MemoryStore.GetSessionByUserCode(ctx, userCode)
}

func TestUserCodeCollisionRegenerates(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	t.Cleanup(mem.Close)

	store := &collisionStore{MemoryStore: mem, collisions: 3}
	flow := NewFlow(store, "http://127.0.0.1:8081")

	session, err := flow.RequestDeviceCode(ctx)
	if err != nil {
		t.Fatalf("RequestDeviceCode: %v", err)
	}
	if session.UserCode == "" {
		t.Error("expected a user code after regeneration")
	}
	if store.lookups != 4 {
		t.Errorf("expected 4 user code lookups, got %d", store.lookups)
	}
}

func TestUserCodeCollisionExhaustsAttempts(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	t.Cleanup(mem.Close)

	store := &collisionStore{MemoryStore: mem, collisions: maxUserCodeAttempts + 1}
	flow := NewFlow(store, "http://127.0.0.1:8081")

	if _, err := flow.RequestDeviceCode(ctx); err == nil {
		t.Fatal("expected error when every candidate code collides")
	}
}
