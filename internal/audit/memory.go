package audit

import (
	"context"
	"sync"

	id "meldish/pkg/domain"
)

// MemorySink collects events in memory.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemorySink constructs an empty memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemorySink) Close() {}

// Events returns a copy of everything emitted so far.
func (s *MemorySink) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...)
}

// ByUser returns all events recorded for one user.
func (s *MemorySink) ByUser(userID id.UserID) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// ByAction returns all events recorded for one action.
func (s *MemorySink) ByAction(action Action) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// Clear drops all recorded events.
func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
