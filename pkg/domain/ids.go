// Package domain holds typed identifiers shared across bounded contexts.
//
// IDs are distinct types over uuid.UUID so a UserID can never be passed where
// an InvitationID is expected. Parse helpers enforce the trust-boundary
// invariant that IDs are valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "meldish/pkg/domain-errors"
)

type (
	// UserID identifies a durable user account.
	UserID uuid.UUID
	// PendingUserID identifies a provisional registration record.
	PendingUserID uuid.UUID
	// InvitationID identifies a staff invitation.
	InvitationID uuid.UUID
	// TenantID identifies the tenant a staff invitation belongs to.
	TenantID uuid.UUID
)

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id PendingUserID) String() string { return uuid.UUID(id).String() }
func (id InvitationID) String() string  { return uuid.UUID(id).String() }
func (id TenantID) String() string      { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id PendingUserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id InvitationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id TenantID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// Text marshalling keeps IDs as canonical UUID strings in JSON payloads.

func (id UserID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id PendingUserID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id InvitationID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id TenantID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = UserID(parsed)
	return nil
}

func (id *PendingUserID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = PendingUserID(parsed)
	return nil
}

func (id *InvitationID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = InvitationID(parsed)
	return nil
}

func (id *TenantID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = TenantID(parsed)
	return nil
}

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewPendingUserID returns a fresh random pending-user ID.
func NewPendingUserID() PendingUserID { return PendingUserID(uuid.New()) }

// NewInvitationID returns a fresh random invitation ID.
func NewInvitationID() InvitationID { return InvitationID(uuid.New()) }

// NewTenantID returns a fresh random tenant ID.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be nil")
	}
	return parsed, nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	return UserID(parsed), err
}

// ParsePendingUserID parses and validates a pending-user ID from its string form.
func ParsePendingUserID(raw string) (PendingUserID, error) {
	parsed, err := parseUUID(raw, "pending user")
	return PendingUserID(parsed), err
}

// ParseInvitationID parses and validates an invitation ID from its string form.
func ParseInvitationID(raw string) (InvitationID, error) {
	parsed, err := parseUUID(raw, "invitation")
	return InvitationID(parsed), err
}

// ParseTenantID parses and validates a tenant ID from its string form.
func ParseTenantID(raw string) (TenantID, error) {
	parsed, err := parseUUID(raw, "tenant")
	return TenantID(parsed), err
}
