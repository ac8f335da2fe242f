// Package mailer delivers transactional email.
package mailer

import "context"

// Message is a single outbound transactional email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages. Implementations classify failures with
// ClassifyError so callers can distinguish transient delivery problems from
// bad recipients.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// FailureKind classifies a delivery failure.
type FailureKind string

const (
	FailureAuthentication   FailureKind = "authentication"
	FailureConnection       FailureKind = "connection"
	FailureInvalidRecipient FailureKind = "invalid_recipient"
	FailureSMTP             FailureKind = "smtp"
	FailureUnknown          FailureKind = "unknown"
)

// SendError carries the failure classification alongside the cause.
type SendError struct {
	Kind FailureKind
	Err  error
}

func (e *SendError) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *SendError) Unwrap() error { return e.Err }
