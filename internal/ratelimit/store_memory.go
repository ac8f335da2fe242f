package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounterStore is a process-local counter store for unit tests.
type MemoryCounterStore struct {
	mu       sync.Mutex
	windows  map[string]*window
	now      func() time.Time
	failWith error
}

// MemoryOption configures a MemoryCounterStore.
type MemoryOption func(*MemoryCounterStore)

// WithClock overrides the store clock, letting tests step past windows.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryCounterStore) {
		s.now = now
	}
}

// NewMemoryCounterStore constructs an empty in-memory counter store.
func NewMemoryCounterStore(opts ...MemoryOption) *MemoryCounterStore {
	s := &MemoryCounterStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryCounterStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return 0, s.failWith
	}

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &window{expiresAt: now.Add(ttl)}
		s.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// FailWith makes every subsequent Incr return err. Pass nil to heal.
func (s *MemoryCounterStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}
