package service

import (
	"context"
	"errors"

	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
	id "meldish/pkg/domain"
	dErrors "meldish/pkg/domain-errors"
	"meldish/pkg/requestcontext"
)

// Progress returns the onboarding progress for a user.
func (s *Service) Progress(ctx context.Context, userID id.UserID) (*models.RegistrationProgress, error) {
	p, err := s.users.FindProgress(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no onboarding progress for this user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not load onboarding progress")
	}
	return p, nil
}

// AdvanceProgress moves a user's onboarding forward. Backwards moves are
// rejected as validation errors.
func (s *Service) AdvanceProgress(ctx context.Context, userID id.UserID, step models.ProgressStep) (*models.RegistrationProgress, error) {
	now := requestcontext.Now(ctx)

	p, err := s.users.FindProgress(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no onboarding progress for this user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not load onboarding progress")
	}

	if err := p.Advance(step, now); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.users.UpdateProgress(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not save onboarding progress")
	}
	return p, nil
}
