// Package secrets centralizes random-token generation and password hashing.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "meldish/pkg/domain-errors"
)

// TokenBytes is the entropy used for verification, invitation, and session
// tokens. 32 bytes matches the original token_urlsafe(32) links.
const TokenBytes = 32

// GenerateToken creates a cryptographically secure URL-safe token from n
// random bytes.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		n = TokenBytes
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashPassword creates a bcrypt digest of the provided password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword checks a plaintext password against a bcrypt digest.
// A mismatch is reported as false, not as an error.
func VerifyPassword(password, digest string) (bool, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("could not verify password: %w", err)
	}
	return true, nil
}
