package autherrors

import (
	"errors"
	"fmt"
)

// Kind classifies an authentication or authorization failure. Handlers map
// each kind to a stable HTTP status; services never format user-facing text.
type Kind string

const (
	KindInvalidCredentials    Kind = "invalid_credentials"
	KindUserInactive          Kind = "user_inactive"
	KindUserAlreadyExists     Kind = "user_already_exists"
	KindUserNotFound          Kind = "user_not_found"
	KindNotFound              Kind = "not_found"
	KindInvalidToken          Kind = "invalid_token"
	KindTokenExpired          Kind = "token_expired"
	KindSessionExpired        Kind = "session_expired"
	KindSessionRevoked        Kind = "session_revoked"
	KindSessionNotFound       Kind = "session_not_found"
	KindProviderUnavailable   Kind = "provider_unavailable"
	KindProviderNotConfigured Kind = "provider_not_configured"
	KindUnclassifiedProvider  Kind = "unclassified_provider_error"
	KindForbidden             Kind = "forbidden"
	KindConflict              Kind = "conflict"
)

// Error is the structured error carried across the auth core. Stage is set on
// multi-step flows (signup) so callers can retry idempotently from the point
// of failure.
type Error struct {
	Kind    Kind
	Message string
	Stage   string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("auth: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("auth: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two auth errors by kind so errors.Is works with the sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind preserving the cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithStage annotates an error with the flow stage it failed at.
func WithStage(err *Error, stage string) *Error {
	err.Stage = stage
	return err
}

// KindOf extracts the kind from any error chain. Errors that carry no kind
// report KindUnclassifiedProvider; the caller decides whether that is a
// provider boundary crossing or an internal failure.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidCredentials    = New(KindInvalidCredentials, "")
	ErrUserInactive          = New(KindUserInactive, "")
	ErrUserAlreadyExists     = New(KindUserAlreadyExists, "")
	ErrUserNotFound          = New(KindUserNotFound, "")
	ErrNotFound              = New(KindNotFound, "")
	ErrInvalidToken          = New(KindInvalidToken, "")
	ErrTokenExpired          = New(KindTokenExpired, "")
	ErrSessionExpired        = New(KindSessionExpired, "")
	ErrSessionRevoked        = New(KindSessionRevoked, "")
	ErrSessionNotFound       = New(KindSessionNotFound, "")
	ErrProviderUnavailable   = New(KindProviderUnavailable, "")
	ErrProviderNotConfigured = New(KindProviderNotConfigured, "")
	ErrForbidden             = New(KindForbidden, "")
	ErrConflict              = New(KindConflict, "")
)
