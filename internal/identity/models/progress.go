package models

import (
	"time"

	id "meldish/pkg/domain"
	dErrors "meldish/pkg/domain-errors"
)

// ProgressStep tags how far a STAFF or CUSTOMER account has come through
// onboarding. Purely a UI hint, never consulted for authorization.
type ProgressStep string

const (
	StepBasicInfo ProgressStep = "basic_info"
	StepProfile   ProgressStep = "profile"
	StepDetail    ProgressStep = "detail"
	StepDone      ProgressStep = "done"
)

var stepOrder = map[ProgressStep]int{
	StepBasicInfo: 0,
	StepProfile:   1,
	StepDetail:    2,
	StepDone:      3,
}

// ParseProgressStep validates a raw step string.
func ParseProgressStep(raw string) (ProgressStep, error) {
	if _, ok := stepOrder[ProgressStep(raw)]; !ok {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid progress step: %s", raw)
	}
	return ProgressStep(raw), nil
}

// RegistrationProgress tracks onboarding completeness for one user.
type RegistrationProgress struct {
	UserID    id.UserID
	UserType  UserType
	Step      ProgressStep
	UpdatedAt time.Time
}

// NewRegistrationProgress starts progress tracking at basic_info.
func NewRegistrationProgress(userID id.UserID, userType UserType, now time.Time) *RegistrationProgress {
	return &RegistrationProgress{
		UserID:    userID,
		UserType:  userType,
		Step:      StepBasicInfo,
		UpdatedAt: now,
	}
}

// Advance moves the progress forward. Steps only move toward done; moving
// backwards is an invariant violation.
func (p *RegistrationProgress) Advance(step ProgressStep, now time.Time) error {
	if stepOrder[step] < stepOrder[p.Step] {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"progress cannot move from %s back to %s", p.Step, step)
	}
	p.Step = step
	p.UpdatedAt = now
	return nil
}
