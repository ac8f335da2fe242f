// Package password owns password policy and credential hashing.
package password

import (
	"unicode"

	dErrors "meldish/pkg/domain-errors"
	"meldish/pkg/secrets"
)

// MinLength is the shortest acceptable password.
const MinLength = 8

// ValidatePolicy checks a candidate password against the account policy:
// at least MinLength characters, with at least one letter and one digit.
func ValidatePolicy(candidate string) error {
	if len(candidate) < MinLength {
		return dErrors.Newf(dErrors.CodeValidation, "password must be at least %d characters", MinLength)
	}
	var hasLetter, hasDigit bool
	for _, r := range candidate {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return dErrors.New(dErrors.CodeValidation, "password must contain at least one letter and one digit")
	}
	return nil
}

// Manager hashes and verifies credentials behind the policy gate.
type Manager struct{}

// NewManager constructs a credential manager.
func NewManager() *Manager {
	return &Manager{}
}

// Hash validates the candidate against policy and returns its digest.
func (m *Manager) Hash(candidate string) (string, error) {
	if err := ValidatePolicy(candidate); err != nil {
		return "", err
	}
	return secrets.HashPassword(candidate)
}

// Verify checks a candidate against a stored digest. An empty digest marks
// an account without a usable password (social-only or placeholder); those
// never verify.
func (m *Manager) Verify(candidate, digest string) (bool, error) {
	if digest == "" {
		return false, nil
	}
	return secrets.VerifyPassword(candidate, digest)
}
