// Package store defines the persistence contracts for the identity domain.
//
// Stores are interface-driven so services stay testable against in-memory
// implementations while production wires PostgreSQL and Redis. Stores are
// pure I/O: branching and invariant checks belong in the services.
package store

import (
	"context"
	"errors"
	"time"

	"meldish/internal/identity/models"
	id "meldish/pkg/domain"
)

// Sentinel errors for store facts. Services translate these into coded
// domain errors at the boundary.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("conflict")
)

// UserStore persists durable user accounts and their onboarding progress.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	// FindByEmailBucket looks a user up within one email-uniqueness scope:
	// CUSTOMER accounts and STAFF/OWNER accounts are separate namespaces.
	FindByEmailBucket(ctx context.Context, email string, bucket models.EmailBucket) (*models.User, error)
	// FindByProviderID resolves a user by a linked social identity.
	FindByProviderID(ctx context.Context, provider models.AuthProvider, externalID string) (*models.User, error)

	CreateProgress(ctx context.Context, progress *models.RegistrationProgress) error
	UpdateProgress(ctx context.Context, progress *models.RegistrationProgress) error
	FindProgress(ctx context.Context, userID id.UserID) (*models.RegistrationProgress, error)
}

// PendingUserStore persists provisional registrations keyed by verification
// token.
type PendingUserStore interface {
	Create(ctx context.Context, pending *models.PendingUser) error
	Update(ctx context.Context, pending *models.PendingUser) error
	FindByEmail(ctx context.Context, email string) (*models.PendingUser, error)
	// FindByTokenForUpdate loads a pending record and, inside a SQL
	// transaction, locks its row so concurrent verification of the same
	// token serializes: the loser of the race observes ErrNotFound after
	// the winner's delete commits.
	FindByTokenForUpdate(ctx context.Context, token string) (*models.PendingUser, error)
	Delete(ctx context.Context, pendingID id.PendingUserID) error
	// DeleteByEmail clears any prior pending registration for the email.
	// Last submission wins; deleting a non-existent record is not an error.
	DeleteByEmail(ctx context.Context, email string) error
}

// InvitationStore persists staff invitations.
type InvitationStore interface {
	Create(ctx context.Context, invitation *models.StaffInvitation) error
	FindByToken(ctx context.Context, token string) (*models.StaffInvitation, error)
	FindByID(ctx context.Context, invitationID id.InvitationID) (*models.StaffInvitation, error)
	// Consume marks the invitation used, conditionally on it being unused:
	// a second consumer observes ErrConflict, never a double consume.
	Consume(ctx context.Context, invitationID id.InvitationID, registeredUser id.UserID, usedAt time.Time) error
}

// SessionStore holds ephemeral invitation sessions. TTL expiry is the sole
// cancellation mechanism; Get on a missing or expired token returns
// ErrNotFound.
type SessionStore interface {
	Put(ctx context.Context, token string, session *models.InvitationSession, ttl time.Duration) error
	Get(ctx context.Context, token string) (*models.InvitationSession, error)
	Delete(ctx context.Context, token string) error
}
