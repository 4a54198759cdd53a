package domain

import "errors"

// Manager-level error kinds. Every error returned by the session manager wraps
// exactly one of these.
var (
	ErrNotFound          = errors.New("account not found")
	ErrNeedsRegistration = errors.New("no account for these credentials")
	ErrAuthFailure       = errors.New("authentication failed")
	ErrUnknown           = errors.New("unexpected failure")
	ErrBusy              = errors.New("another account operation is in progress")
	ErrInvalidInput      = errors.New("invalid input")
)

// Backend and storage causes, classified by the manager.
var (
	ErrNoSession            = errors.New("no current session")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionExpired       = errors.New("session expired or revoked")
	ErrUserAlreadyExists    = errors.New("user already registered")
	ErrConfirmationRequired = errors.New("email confirmation required")
	ErrRateLimited          = errors.New("rate limited by identity backend")
	ErrKeyNotFound          = errors.New("key not found")
)

type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindNotFound          ErrorKind = "not_found"
	KindNeedsRegistration ErrorKind = "needs_registration"
	KindAuthFailure       ErrorKind = "auth_failure"
	KindBusy              ErrorKind = "busy"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindUnknown           ErrorKind = "unknown"
)

// KindOf maps err onto the closed set of kinds callers branch on.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNeedsRegistration):
		return KindNeedsRegistration
	case errors.Is(err, ErrAuthFailure):
		return KindAuthFailure
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindUnknown
	}
}
