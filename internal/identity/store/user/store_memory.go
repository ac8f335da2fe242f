package user

import (
	"context"
	"sync"

	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
	id "meldish/pkg/domain"
)

// MemoryStore is the in-memory user store used by unit tests and demos.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[id.UserID]*models.User
	progress map[id.UserID]*models.RegistrationProgress
}

// NewMemory constructs an empty in-memory user store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		users:    make(map[id.UserID]*models.User),
		progress: make(map[id.UserID]*models.RegistrationProgress),
	}
}

func (s *MemoryStore) Create(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return store.ErrConflict
	}
	for _, existing := range s.users {
		if existing.Email == u.Email && existing.UserType.Bucket() == u.UserType.Bucket() {
			return store.ErrConflict
		}
		if providerIDTaken(existing, u) {
			return store.ErrConflict
		}
	}
	clone := *u
	s.users[u.ID] = &clone
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	for _, existing := range s.users {
		if existing.ID == u.ID {
			continue
		}
		if existing.Email == u.Email && existing.UserType.Bucket() == u.UserType.Bucket() {
			return store.ErrConflict
		}
		if providerIDTaken(existing, u) {
			return store.ErrConflict
		}
	}
	clone := *u
	s.users[u.ID] = &clone
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *MemoryStore) FindByEmailBucket(ctx context.Context, email string, bucket models.EmailBucket) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email && u.UserType.Bucket() == bucket {
			clone := *u
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemoryStore) FindByProviderID(ctx context.Context, provider models.AuthProvider, externalID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if externalID == "" {
		return nil, store.ErrNotFound
	}
	for _, u := range s.users {
		if u.ProviderID(provider) == externalID {
			clone := *u
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemoryStore) CreateProgress(ctx context.Context, p *models.RegistrationProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.progress[p.UserID]; ok {
		return store.ErrConflict
	}
	clone := *p
	s.progress[p.UserID] = &clone
	return nil
}

func (s *MemoryStore) UpdateProgress(ctx context.Context, p *models.RegistrationProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.progress[p.UserID]; !ok {
		return store.ErrNotFound
	}
	clone := *p
	s.progress[p.UserID] = &clone
	return nil
}

func (s *MemoryStore) FindProgress(ctx context.Context, userID id.UserID) (*models.RegistrationProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

type memorySnapshot struct {
	users    map[id.UserID]*models.User
	progress map[id.UserID]*models.RegistrationProgress
}

// Snapshot captures store state for the memory transaction runner.
func (s *MemoryStore) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := memorySnapshot{
		users:    make(map[id.UserID]*models.User, len(s.users)),
		progress: make(map[id.UserID]*models.RegistrationProgress, len(s.progress)),
	}
	for k, v := range s.users {
		clone := *v
		snap.users[k] = &clone
	}
	for k, v := range s.progress {
		clone := *v
		snap.progress[k] = &clone
	}
	return snap
}

// Restore rewinds store state to a prior snapshot.
func (s *MemoryStore) Restore(snapshot any) {
	snap, ok := snapshot.(memorySnapshot)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.progress = snap.progress
}

func providerIDTaken(existing, candidate *models.User) bool {
	for _, p := range []models.AuthProvider{models.ProviderGoogle, models.ProviderLine, models.ProviderFacebook} {
		candidateID := candidate.ProviderID(p)
		if candidateID != "" && existing.ProviderID(p) == candidateID {
			return true
		}
	}
	return false
}
