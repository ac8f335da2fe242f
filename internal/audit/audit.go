// Package audit records security-relevant identity events. Events are
// emitted from domain logic and fanned out to a sink; the Kafka sink is the
// production path, the memory sink serves tests and single-node setups.
package audit

import (
	"context"
	"time"

	id "meldish/pkg/domain"
)

// Action names one audited occurrence.
type Action string

const (
	ActionRegistrationStarted Action = "registration_started"
	ActionEmailVerified       Action = "email_verified"
	ActionEmailResent         Action = "registration_email_resent"
	ActionEmailChanged        Action = "registration_email_changed"
	ActionUserActivated       Action = "user_activated"
	ActionInvitationIssued    Action = "invitation_issued"
	ActionInvitationConsumed  Action = "invitation_consumed"
	ActionSocialLogin         Action = "social_login"
	ActionSocialUserCreated   Action = "social_user_created"
	ActionLoginSucceeded      Action = "login_succeeded"
	ActionLoginFailed         Action = "login_failed"
	ActionAccountLocked       Action = "account_locked"
	ActionDisposableRejected  Action = "disposable_email_rejected"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	UserID    id.UserID `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	UserType  string    `json:"user_type,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Sink receives emitted events.
type Sink interface {
	Emit(ctx context.Context, event Event) error
	Close()
}
