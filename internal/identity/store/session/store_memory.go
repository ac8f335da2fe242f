package session

import (
	"context"
	"sync"
	"time"

	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
)

type memoryEntry struct {
	session   models.InvitationSession
	expiresAt time.Time
}

// MemoryStore is an in-memory session store for unit tests and single-node
// demos. Expiry is checked lazily on Get.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the store clock, letting tests step past TTLs.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemory constructs an empty in-memory session store.
func NewMemory(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Put(ctx context.Context, token string, session *models.InvitationSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[token] = memoryEntry{
		session:   *session,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, token string) (*models.InvitationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, token)
		return nil, store.ErrNotFound
	}
	clone := entry.session
	return &clone, nil
}

func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, token)
	return nil
}
