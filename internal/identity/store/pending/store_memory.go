package pending

import (
	"context"
	"sync"

	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
	id "meldish/pkg/domain"
)

// MemoryStore is the in-memory pending-user store for unit tests and demos.
type MemoryStore struct {
	mu      sync.Mutex
	records map[id.PendingUserID]*models.PendingUser
}

// NewMemory constructs an empty in-memory pending-user store.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[id.PendingUserID]*models.PendingUser)}
}

func (s *MemoryStore) Create(ctx context.Context, p *models.PendingUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.Email == p.Email || existing.VerificationToken == p.VerificationToken {
			return store.ErrConflict
		}
	}
	clone := *p
	s.records[p.ID] = &clone
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, p *models.PendingUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[p.ID]; !ok {
		return store.ErrNotFound
	}
	clone := *p
	s.records[p.ID] = &clone
	return nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*models.PendingUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.records {
		if p.Email == email {
			clone := *p
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemoryStore) FindByTokenForUpdate(ctx context.Context, token string) (*models.PendingUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.records {
		if p.VerificationToken == token {
			clone := *p
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemoryStore) Delete(ctx context.Context, pendingID id.PendingUserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[pendingID]; !ok {
		return store.ErrNotFound
	}
	delete(s.records, pendingID)
	return nil
}

func (s *MemoryStore) DeleteByEmail(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for pid, p := range s.records {
		if p.Email == email {
			delete(s.records, pid)
		}
	}
	return nil
}

// Snapshot captures store state for the memory transaction runner.
func (s *MemoryStore) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := make(map[id.PendingUserID]*models.PendingUser, len(s.records))
	for k, v := range s.records {
		clone := *v
		snap[k] = &clone
	}
	return snap
}

// Restore rewinds store state to a prior snapshot.
func (s *MemoryStore) Restore(snapshot any) {
	snap, ok := snapshot.(map[id.PendingUserID]*models.PendingUser)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = snap
}
