// Package domainerrors provides coded errors for the service layer.
//
// Services translate store sentinels and validation failures into coded
// errors; the transport layer maps codes onto HTTP status codes and
// user-facing messages. Codes are part of the API contract between layers,
// messages are not.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for the boundary layer.
type Code string

const (
	// CodeValidation marks bad input shape the caller can correct.
	CodeValidation Code = "validation"
	// CodeInvalidInput marks a malformed identifier or parameter.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks a stale or unknown reference; the flow must restart.
	CodeNotFound Code = "not_found"
	// CodeConflict marks conflicting durable state.
	CodeConflict Code = "conflict"
	// CodeAlreadyRegistered marks an account conflict; direct the user to login.
	CodeAlreadyRegistered Code = "already_registered"
	// CodeSessionExpired marks an expired or missing ephemeral session.
	CodeSessionExpired Code = "session_expired"
	// CodeInvitationRequired marks a STAFF flow attempted without an invitation.
	CodeInvitationRequired Code = "invitation_required"
	// CodeInvitationInvalid marks a used or expired invitation.
	CodeInvitationInvalid Code = "invitation_invalid"
	// CodeEmailSend marks a transactional-email failure; the call is retryable.
	CodeEmailSend Code = "email_send"
	// CodeRateLimited marks throttling; the caller should back off.
	CodeRateLimited Code = "rate_limited"
	// CodeUnauthorized marks failed authentication.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated but disallowed operation.
	CodeForbidden Code = "forbidden"
	// CodeInvariantViolation marks a broken model invariant (programmer error).
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks an unexpected infrastructure failure.
	CodeInternal Code = "internal"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
// Wrapping nil returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var coded *Error
	for errors.As(err, &coded) {
		if coded.Code == code {
			return true
		}
		err = coded.Err
		coded = nil
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries no code.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost coded message, or a generic fallback for
// uncoded errors so internals never leak to users.
func MessageOf(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Message
	}
	return "internal error"
}
