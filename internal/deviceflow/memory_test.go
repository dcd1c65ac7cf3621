package deviceflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func testSession(deviceCode, userCode string, expiresAt time.Time) *Session {
	return &Session{
		DeviceCode: deviceCode,
		UserCode:   userCode,
		CreatedAt:  expiresAt.Add(-10 * time.Minute),
		ExpiresAt:  expiresAt,
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	want := testSession("dev-1", "123456", time.Now().Add(10*time.Minute))
	if err := store.SaveSession(ctx, want); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := store.GetSession(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}

	byUser, err := store.GetSessionByUserCode(ctx, "123456")
	if err != nil {
		t.Fatalf("GetSessionByUserCode: %v", err)
	}
	if diff := cmp.Diff(want, byUser); diff != "" {
		t.Errorf("user code lookup mismatch (-want +got):\n%s", diff)
	}

	if unknown, _ := store.GetSession(ctx, "nope"); unknown != nil {
		t.Error("expected nil for unknown device code")
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	session := testSession("dev-1", "123456", time.Now().Add(10*time.Minute))
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	first, _ := store.GetSession(ctx, "dev-1")
	first.Approved = true
	first.Subject = "mallory"

	second, _ := store.GetSession(ctx, "dev-1")
	if second.Approved || second.Subject != "" {
		t.Error("mutating a returned session must not affect the store")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	session := testSession("dev-1", "123456", time.Now().Add(10*time.Minute))
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	if err := store.DeleteSession(ctx, "dev-1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if got, _ := store.GetSession(ctx, "dev-1"); got != nil {
		t.Error("session still present after delete")
	}
	if got, _ := store.GetSessionByUserCode(ctx, "123456"); got != nil {
		t.Error("user code entry still present after delete")
	}

	// Deleting again is a no-op
	if err := store.DeleteSession(ctx, "dev-1"); err != nil {
		t.Errorf("repeat DeleteSession: %v", err)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithRetention(5 * time.Minute))
	defer store.Close()

	now := time.Now()
	expired := testSession("dev-old", "111111", now.Add(-10*time.Minute))
	inGrace := testSession("dev-grace", "222222", now.Add(-time.Minute))
	active := testSession("dev-new", "333333", now.Add(10*time.Minute))

	for _, s := range []*Session{expired, inGrace, active} {
		store.mu.Lock()
		copied := *s
		store.sessions[s.DeviceCode] = &copied
		store.userCodes[s.UserCode] = s.DeviceCode
		store.expiries = append(store.expiries, expiryEntry{
			evictAt:    s.ExpiresAt.Add(store.retention),
			deviceCode: s.DeviceCode,
		})
		store.mu.Unlock()
	}

	store.sweep(now)

	if got, _ := store.GetSession(ctx, "dev-old"); got != nil {
		t.Error("session past retention must be evicted")
	}
	if got, _ := store.GetSession(ctx, "dev-grace"); got == nil {
		t.Error("expired session inside retention must remain queryable")
	}
	if got, _ := store.GetSession(ctx, "dev-new"); got == nil {
		t.Error("active session must survive the sweep")
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 sessions after sweep, got %d", store.Len())
	}
}

func TestMemoryStoreUserCodeReuseAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	old := testSession("dev-old", "123456", time.Now().Add(-time.Minute))
	if err := store.SaveSession(ctx, old); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	// A new session may reuse a user code whose previous owner expired;
	// the old session stays reachable by device code
	fresh := testSession("dev-new", "123456", time.Now().Add(10*time.Minute))
	if err := store.SaveSession(ctx, fresh); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	byUser, _ := store.GetSessionByUserCode(ctx, "123456")
	if byUser == nil || byUser.DeviceCode != "dev-new" {
		t.Errorf("user code must resolve to the fresh session, got %+v", byUser)
	}
	if byDevice, _ := store.GetSession(ctx, "dev-old"); byDevice == nil {
		t.Error("old session must stay reachable by device code")
	}
}

func TestMemoryStoreClose(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Close()

	if err := store.CheckHealth(ctx); err == nil {
		t.Error("expected health check failure after Close")
	}
	if err := store.SaveSession(ctx, testSession("d", "123456", time.Now().Add(time.Minute))); err == nil {
		t.Error("expected save failure after Close")
	}

	// Close is idempotent
	store.Close()
}
