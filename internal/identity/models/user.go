package models

import (
	"time"

	id "meldish/pkg/domain"
	dErrors "meldish/pkg/domain-errors"
)

// UserType partitions accounts into the three user classes. STAFF admission
// always routes through the invitation gate; OWNER and CUSTOMER self-register.
type UserType string

const (
	UserTypeOwner    UserType = "OWNER"
	UserTypeStaff    UserType = "STAFF"
	UserTypeCustomer UserType = "CUSTOMER"
)

// ParseUserType validates a raw user type string.
func ParseUserType(raw string) (UserType, error) {
	switch UserType(raw) {
	case UserTypeOwner, UserTypeStaff, UserTypeCustomer:
		return UserType(raw), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid user type: %s", raw)
	}
}

// EmailBucket is the uniqueness scope for emails. STAFF and OWNER share a
// login surface so they share a bucket; a CUSTOMER may reuse either's email.
type EmailBucket string

const (
	BucketCustomer     EmailBucket = "CUSTOMER"
	BucketStaffOrOwner EmailBucket = "STAFF_OR_OWNER"
)

// Bucket maps a user type onto its email-uniqueness scope.
func (t UserType) Bucket() EmailBucket {
	if t == UserTypeCustomer {
		return BucketCustomer
	}
	return BucketStaffOrOwner
}

// AuthProvider records the most recently used credential method. It is not
// exclusive: a user may hold several linked provider IDs at once.
type AuthProvider string

const (
	ProviderEmail    AuthProvider = "email"
	ProviderGoogle   AuthProvider = "google"
	ProviderLine     AuthProvider = "line"
	ProviderFacebook AuthProvider = "facebook"
)

// ParseSocialProvider validates a provider name for the social flows.
// "email" is deliberately rejected here; it is not a social provider.
func ParseSocialProvider(raw string) (AuthProvider, error) {
	switch AuthProvider(raw) {
	case ProviderGoogle, ProviderLine, ProviderFacebook:
		return AuthProvider(raw), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unsupported provider: %s", raw)
	}
}

const (
	CountryJapan     = "JP"
	CountryAustralia = "AU"

	LanguageJapanese = "ja"
	LanguageEnglish  = "en"
)

// User is the durable identity record.
//
// Invariants:
//   - Email is unique within its Bucket().
//   - Provider IDs are globally unique when set.
//   - PasswordDigest == "" is the unusable-password sentinel: social-only
//     accounts cannot log in with a password until one is explicitly set.
type User struct {
	ID             id.UserID
	Email          string
	PasswordDigest string
	UserType       UserType

	IsActive        bool
	IsEmailVerified bool
	AuthProvider    AuthProvider

	GoogleUserID   string
	LineUserID     string
	FacebookUserID string

	Country  string
	Language string
	Timezone string

	FirstName   string
	LastName    string
	PhoneNumber string
	PictureURL  string

	FailedLoginAttempts int
	AccountLockedUntil  *time.Time

	TenantID id.TenantID

	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
}

// HasUsablePassword reports whether password login is possible.
func (u *User) HasUsablePassword() bool {
	return u.PasswordDigest != ""
}

// IsLocked reports whether the account is under a login lock at the given time.
func (u *User) IsLocked(now time.Time) bool {
	return u.AccountLockedUntil != nil && now.Before(*u.AccountLockedUntil)
}

// RecordLoginFailure bumps the failure counter and applies a lock once the
// threshold is reached. Returns true when this failure triggered the lock.
func (u *User) RecordLoginFailure(now time.Time, threshold int, lockFor time.Duration) bool {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= threshold {
		until := now.Add(lockFor)
		u.AccountLockedUntil = &until
		return true
	}
	return false
}

// ResetLoginFailures clears the failure counter and any lock after a
// successful authentication.
func (u *User) ResetLoginFailures() {
	u.FailedLoginAttempts = 0
	u.AccountLockedUntil = nil
}

// ProviderID returns the external ID linked for the given social provider.
func (u *User) ProviderID(provider AuthProvider) string {
	switch provider {
	case ProviderGoogle:
		return u.GoogleUserID
	case ProviderLine:
		return u.LineUserID
	case ProviderFacebook:
		return u.FacebookUserID
	default:
		return ""
	}
}

// SetProviderID links an external ID for the given social provider.
func (u *User) SetProviderID(provider AuthProvider, externalID string) error {
	switch provider {
	case ProviderGoogle:
		u.GoogleUserID = externalID
	case ProviderLine:
		u.LineUserID = externalID
	case ProviderFacebook:
		u.FacebookUserID = externalID
	default:
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot link provider %s", provider)
	}
	return nil
}
