// Package apperr classifies business-rule failures so the HTTP boundary can
// map them to status codes without knowing which component raised them.
//
// Services return sentinel errors (or wrap them with %w). The boundary calls
// KindOf to pick a response; anything unclassified is Internal.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the coarse category of a failure.
type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	Forbidden
	NotFound
	Conflict
	InvalidInput
	RateLimited
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidInput:
		return "invalid_input"
	case RateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// HTTPStatus maps a Kind to its response code.
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case InvalidInput:
		return http.StatusBadRequest
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure with a stable machine-readable code.
type Error struct {
	Kind    Kind
	Code    string // e.g. "duplicate_pending"
	Message string // safe to show to callers
	Err     error  // optional cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Code so wrapped copies still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New builds a classified error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap classifies err under kind, keeping it as the cause.
func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or Internal if it is unclassified.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return Internal
}

// Sentinels shared across components.
var (
	ErrUnauthenticated    = New(Unauthenticated, "unauthenticated", "authentication required")
	ErrInvalidCredentials = New(Unauthenticated, "invalid_credentials", "invalid username or password")
	ErrInvalidOTP         = New(Unauthenticated, "invalid_otp", "invalid verification code")
	ErrOTPExpired         = New(Unauthenticated, "otp_expired", "verification code has expired")
	ErrTooManyAttempts    = New(Unauthenticated, "too_many_attempts", "too many attempts, request a new code")

	ErrForbidden        = New(Forbidden, "forbidden", "insufficient permission")
	ErrApprovalRequired = New(Forbidden, "approval_required", "joining this group requires approval")
	ErrInviteOnly       = New(Forbidden, "invite_only", "this group is invite only")
	ErrNotMember        = New(Forbidden, "not_member", "you are not a member of this group")

	ErrNotFound = New(NotFound, "not_found", "not found")

	ErrAlreadyExists    = New(Conflict, "already_exists", "username or email already taken")
	ErrDuplicatePending = New(Conflict, "duplicate_pending", "a matching request is already pending")
	ErrAlreadyReviewed  = New(Conflict, "already_reviewed", "request has already been reviewed")
	ErrAlreadyMember    = New(Conflict, "already_member", "already a member of this group")
	ErrDuplicateName    = New(Conflict, "duplicate_group_name", "a group with this name already exists")

	ErrInvalidInput = New(InvalidInput, "invalid_input", "invalid input")
	ErrInvalidType  = New(InvalidInput, "invalid_type", "invalid request type for the given group")

	ErrRateLimited = New(RateLimited, "rate_limited", "too many attempts, try again later")
)

// Invalid returns an InvalidInput error with a specific message.
func Invalid(message string) *Error {
	return &Error{Kind: InvalidInput, Code: ErrInvalidInput.Code, Message: message}
}

// NotFoundf returns a NotFound error naming what was missing.
func NotFoundf(what string) *Error {
	return &Error{Kind: NotFound, Code: ErrNotFound.Code, Message: what + " not found"}
}
