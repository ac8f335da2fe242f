package models

import (
	"time"

	id "meldish/pkg/domain"
)

// PendingUser bridges an unverified email signup to a durable User.
//
// Invariants:
//   - At most one record per (email, user type) at a time; a newer
//     registration attempt replaces any prior record (last write wins).
//   - VerificationToken is unique and single-use: the record is deleted on
//     successful verification, so a replayed token observes not-found.
type PendingUser struct {
	ID             id.PendingUserID
	Email          string
	PasswordDigest string
	UserType       UserType

	Country  string
	Timezone string
	Language string

	FirstName string
	LastName  string

	// UserID back-references an existing account when this registration adds
	// a password to a social-only user. Zero for plain signups.
	UserID id.UserID

	VerificationToken string
	TokenExpiresAt    time.Time
	CreatedAt         time.Time
}

// IsTokenValid reports whether the verification token is still within its
// expiry window. The boundary is exclusive: a token expiring exactly now is
// invalid.
func (p *PendingUser) IsTokenValid(now time.Time) bool {
	return now.Before(p.TokenExpiresAt)
}

// IsLinking reports whether verification will attach credentials to an
// existing account rather than materialize a new one.
func (p *PendingUser) IsLinking() bool {
	return !p.UserID.IsNil()
}

// Materialize builds the durable User this pending record promotes to on the
// non-linking branch. The caller assigns timestamps and persists.
func (p *PendingUser) Materialize(now time.Time) *User {
	return &User{
		ID:              id.NewUserID(),
		Email:           p.Email,
		PasswordDigest:  p.PasswordDigest,
		UserType:        p.UserType,
		IsActive:        true,
		IsEmailVerified: true,
		AuthProvider:    ProviderEmail,
		Country:         p.Country,
		Language:        p.Language,
		Timezone:        p.Timezone,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
