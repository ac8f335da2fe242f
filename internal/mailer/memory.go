package mailer

import (
	"context"
	"sync"
)

// MemorySender records messages instead of delivering them. Tests inject
// failures to exercise rollback paths.
type MemorySender struct {
	mu       sync.Mutex
	sent     []Message
	failWith error
}

// NewMemory constructs a recording sender.
func NewMemory() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}
	s.sent = append(s.sent, msg)
	return nil
}

// Sent returns a copy of all recorded messages.
func (s *MemorySender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}

// Last returns the most recent message, or false when nothing was sent.
func (s *MemorySender) Last() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sent) == 0 {
		return Message{}, false
	}
	return s.sent[len(s.sent)-1], true
}

// FailWith makes every subsequent Send return err. Pass nil to heal.
func (s *MemorySender) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}
