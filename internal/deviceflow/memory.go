package deviceflow

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

const (
	// DefaultRetention is how long expired sessions stay queryable. During
	// this grace window polls on an expired code report expiry instead of
	// an unknown code; afterwards the session is evicted.
	DefaultRetention = 10 * time.Minute

	// defaultSweepInterval is how often the janitor evicts dead sessions
	defaultSweepInterval = time.Minute
)

// MemoryStore implements Store with a mutex-guarded in-process table.
// Sessions past expiry plus the retention window are evicted by a janitor
// goroutine driven by an expiry-ordered min-heap, keeping the table bounded
// without scanning it.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	userCodes map[string]string // user code -> device code
	expiries  expiryHeap
	closed    bool

	retention     time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	stop          chan struct{}
	stopOnce      sync.Once
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithRetention sets how long expired sessions remain queryable
func WithRetention(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.retention = d
	}
}

// WithSweepInterval sets how often the janitor runs
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.sweepInterval = d
	}
}

// withMemoryClock overrides the time source in tests
func withMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an in-memory session store and starts its janitor.
// Call Close to stop the janitor when the store is no longer needed.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions:      make(map[string]*Session),
		userCodes:     make(map[string]string),
		retention:     DefaultRetention,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.janitor()

	return s
}

// Close stops the janitor goroutine
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	})
}

// SaveSession stores a copy of the session
func (s *MemoryStore) SaveSession(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("memory store closed")
	}

	if _, exists := s.sessions[session.DeviceCode]; !exists {
		heap.Push(&s.expiries, expiryEntry{
			evictAt:    session.ExpiresAt.Add(s.retention),
			deviceCode: session.DeviceCode,
		})
	}

	copied := *session
	s.sessions[session.DeviceCode] = &copied
	s.userCodes[session.UserCode] = session.DeviceCode
	return nil
}

// GetSession retrieves a session by device code, or (nil, nil) if unknown
func (s *MemoryStore) GetSession(ctx context.Context, deviceCode string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[deviceCode]
	if !exists {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

// GetSessionByUserCode retrieves a session by normalized user code
func (s *MemoryStore) GetSessionByUserCode(ctx context.Context, userCode string) (*Session, error) {
	s.mu.Lock()
	deviceCode, exists := s.userCodes[userCode]
	s.mu.Unlock()
	if !exists {
		return nil, nil
	}
	return s.GetSession(ctx, deviceCode)
}

// DeleteSession removes a session and its user code index entry
func (s *MemoryStore) DeleteSession(ctx context.Context, deviceCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evict(deviceCode)
	return nil
}

// CheckHealth reports whether the store is usable
func (s *MemoryStore) CheckHealth(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("memory store closed")
	}
	return nil
}

// Len returns the number of stored sessions, including expired ones still
// inside the retention window
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(s.now())
		}
	}
}

// sweep evicts every session whose eviction time has passed
func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.expiries) > 0 && !s.expiries[0].evictAt.After(now) {
		entry := heap.Pop(&s.expiries).(expiryEntry)
		s.evict(entry.deviceCode)
	}
}

// evict removes a session and its user code entry; callers hold the lock
func (s *MemoryStore) evict(deviceCode string) {
	session, exists := s.sessions[deviceCode]
	if !exists {
		return
	}
	if s.userCodes[session.UserCode] == deviceCode {
		delete(s.userCodes, session.UserCode)
	}
	delete(s.sessions, deviceCode)
}

// expiryEntry orders sessions by eviction time
type expiryEntry struct {
	evictAt    time.Time
	deviceCode string
}

// expiryHeap is a min-heap over session eviction times
type expiryHeap []expiryEntry

func (h expiryHeap) Len() int            { return len(h) }
func (h expiryHeap) Less(i, j int) bool  { return h[i].evictAt.Before(h[j].evictAt) }
func (h expiryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap) Push(x interface{}) { *h = append(*h, x.(expiryEntry)) }

func (h *expiryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}
