// Package jwttoken issues and validates the access/refresh token pair handed
// out when an account activates or authenticates.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"meldish/internal/identity/models"
	id "meldish/pkg/domain"
	dErrors "meldish/pkg/domain-errors"
)

// TokenType distinguishes the two halves of a pair.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims represents the JWT claims for our tokens.
type Claims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	UserType  string    `json:"user_type"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Pair is one access/refresh issuance.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService constructs a token service signing with HS256.
func NewService(signingKey, issuer string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssuePair creates an access/refresh pair for the user.
func (s *Service) IssuePair(user *models.User, now time.Time) (*Pair, error) {
	access, err := s.sign(user, TokenTypeAccess, now, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user, TokenTypeRefresh, now, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.accessTTL,
	}, nil
}

func (s *Service) sign(user *models.User, tokenType TokenType, now time.Time, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    user.ID.String(),
		Email:     user.Email,
		UserType:  string(user.UserType),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign token")
	}
	return signed, nil
}

// Validate parses a token and returns its claims.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ExtractUserID validates a token and parses its subject user ID.
func (s *Service) ExtractUserID(tokenString string) (id.UserID, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return id.UserID{}, err
	}
	return id.ParseUserID(claims.UserID)
}
