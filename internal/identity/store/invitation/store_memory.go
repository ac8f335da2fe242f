package invitation

import (
	"context"
	"sync"
	"time"

	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
	id "meldish/pkg/domain"
)

// MemoryStore is the in-memory invitation store for unit tests and demos.
type MemoryStore struct {
	mu      sync.Mutex
	records map[id.InvitationID]*models.StaffInvitation
}

// NewMemory constructs an empty in-memory invitation store.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[id.InvitationID]*models.StaffInvitation)}
}

func (s *MemoryStore) Create(ctx context.Context, inv *models.StaffInvitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[inv.ID]; ok {
		return store.ErrConflict
	}
	for _, existing := range s.records {
		if existing.Token == inv.Token {
			return store.ErrConflict
		}
	}
	clone := *inv
	s.records[inv.ID] = &clone
	return nil
}

func (s *MemoryStore) FindByToken(ctx context.Context, token string) (*models.StaffInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inv := range s.records {
		if inv.Token == token {
			clone := *inv
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemoryStore) FindByID(ctx context.Context, invitationID id.InvitationID) (*models.StaffInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.records[invitationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *inv
	return &clone, nil
}

// Consume mirrors the conditional UPDATE of the relational store: the check
// and the flip happen under one lock, so only one caller wins.
func (s *MemoryStore) Consume(ctx context.Context, invitationID id.InvitationID, registeredUser id.UserID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.records[invitationID]
	if !ok {
		return store.ErrNotFound
	}
	if inv.IsUsed {
		return store.ErrConflict
	}
	inv.MarkUsed(registeredUser, usedAt)
	return nil
}

// Snapshot captures store state for the memory transaction runner.
func (s *MemoryStore) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := make(map[id.InvitationID]*models.StaffInvitation, len(s.records))
	for k, v := range s.records {
		clone := *v
		snap[k] = &clone
	}
	return snap
}

// Restore rewinds store state to a prior snapshot.
func (s *MemoryStore) Restore(snapshot any) {
	snap, ok := snapshot.(map[id.InvitationID]*models.StaffInvitation)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = snap
}
