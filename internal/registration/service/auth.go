package service

import (
	"context"
	"errors"
	"fmt"

	"meldish/internal/audit"
	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
	"meldish/internal/jwttoken"
	dErrors "meldish/pkg/domain-errors"
	"meldish/pkg/email"
	"meldish/pkg/requestcontext"
)

// AuthResult reports a successful password authentication.
type AuthResult struct {
	User   *models.User
	Tokens *jwttoken.Pair
}

// Authenticate performs password login within one email bucket. Unknown
// email, wrong password, inactive account, and unusable password all return
// the same unauthorized error so the response never confirms whether an
// address is registered. Repeated failures lock the account.
func (s *Service) Authenticate(ctx context.Context, rawEmail, candidate string, bucket models.EmailBucket) (*AuthResult, error) {
	now := requestcontext.Now(ctx)
	addr := email.Normalize(rawEmail)

	u, err := s.users.FindByEmailBucket(ctx, addr, bucket)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errInvalidCredentials()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not load account")
	}

	if u.IsLocked(now) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "account is temporarily locked, try again later")
	}
	if !u.IsActive || !u.HasUsablePassword() {
		return nil, errInvalidCredentials()
	}

	ok, err := s.passwords.Verify(candidate, u.PasswordDigest)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not verify credentials")
	}
	if !ok {
		return nil, s.recordFailure(ctx, u)
	}

	u.ResetLoginFailures()
	u.AuthProvider = models.ProviderEmail
	u.LastLoginAt = &now
	u.UpdatedAt = now
	if err := s.users.Update(ctx, u); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not record login")
	}

	pair, err := s.tokens.IssuePair(u, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not issue tokens")
	}

	s.emitAudit(ctx, audit.Event{
		Action:   audit.ActionLoginSucceeded,
		UserID:   u.ID,
		Email:    u.Email,
		Provider: string(models.ProviderEmail),
	})
	return &AuthResult{User: u, Tokens: pair}, nil
}

func (s *Service) recordFailure(ctx context.Context, u *models.User) error {
	now := requestcontext.Now(ctx)

	locked := u.RecordLoginFailure(now, s.cfg.LockoutThreshold, s.cfg.LockoutDuration)
	u.UpdatedAt = now
	if err := s.users.Update(ctx, u); err != nil {
		s.logger.ErrorContext(ctx, "could not persist login failure",
			"user_id", u.ID, "error", fmt.Errorf("update account: %w", err))
	}

	s.emitAudit(ctx, audit.Event{
		Action: audit.ActionLoginFailed,
		UserID: u.ID,
		Email:  u.Email,
	})
	if locked {
		s.emitAudit(ctx, audit.Event{
			Action: audit.ActionAccountLocked,
			UserID: u.ID,
			Email:  u.Email,
			Reason: "too many failed login attempts",
		})
		if s.metrics != nil {
			s.metrics.LoginLockouts.Inc()
		}
		s.logger.WarnContext(ctx, "account locked after repeated login failures", "user_id", u.ID)
	}
	return errInvalidCredentials()
}

func errInvalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
}
