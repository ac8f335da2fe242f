package models

import (
	"time"

	id "meldish/pkg/domain"
)

// StaffInvitation is a single-use admission ticket for STAFF onboarding.
//
// Invariants:
//   - IsValid() ⇔ !IsUsed && now < ExpiresAt (exclusive boundary).
//   - Once consumed, IsUsed stays true permanently and RegisteredUserID
//     records who activated it; an invitation is never reusable.
type StaffInvitation struct {
	ID    id.InvitationID
	Token string

	Email     string
	FirstName string
	LastName  string
	Language  string
	Country   string

	// UserID references the inactive placeholder account created at
	// invitation time. Activation flips that account live instead of
	// creating a new one.
	UserID    id.UserID
	TenantID  id.TenantID
	InvitedBy id.UserID

	IsUsed           bool
	RegisteredUserID id.UserID

	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// IsValid reports whether the invitation can still admit a staff member.
func (i *StaffInvitation) IsValid(now time.Time) bool {
	return !i.IsUsed && now.Before(i.ExpiresAt)
}

// MarkUsed consumes the invitation. Store implementations must persist this
// conditionally on IsUsed still being false.
func (i *StaffInvitation) MarkUsed(userID id.UserID, now time.Time) {
	i.IsUsed = true
	i.RegisteredUserID = userID
	i.UsedAt = &now
}

// InvitationSession correlates a short-lived opaque session token with a
// validated invitation, decoupling "the invitation link was opened" from
// "the activation form was submitted". It lives only in the ephemeral store
// and expires by TTL; there is no explicit cancel.
type InvitationSession struct {
	InvitationID    id.InvitationID `json:"invitation_id"`
	InvitationToken string          `json:"invitation_token"`
	Email           string          `json:"email"`
}
