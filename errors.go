package authd

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a business-rule failure carrying the HTTP status it maps to.
// The detail string is safe to show to clients; anything that is not an
// *Error is collapsed to ErrInternal before leaving the service.
type Error struct {
	Status int
	Detail string

	// ClearCookie tells the HTTP layer to drop the session cookie
	// alongside the error response.
	ClearCookie bool
}

func (e *Error) Error() string {
	return e.Detail
}

// WithClearCookie returns a copy of the error that additionally signals the
// HTTP layer to expire the caller's session cookie.
func (e *Error) WithClearCookie() *Error {
	clone := *e
	clone.ClearCookie = true
	return &clone
}

var (
	// ErrAuthentication is the generic credential failure returned in
	// production so that user enumeration is not possible.
	ErrAuthentication = &Error{Status: http.StatusBadRequest, Detail: "Authentication error."}
	// ErrIncorrectPassword is the debug-only detail variant of ErrAuthentication.
	ErrIncorrectPassword = &Error{Status: http.StatusBadRequest, Detail: "Incorrect password."}
	// ErrUserNotFound reports a missing user record. Outside debug mode the
	// credential path returns ErrAuthentication instead.
	ErrUserNotFound = &Error{Status: http.StatusNotFound, Detail: "User not found."}
	// ErrUnauthorized reports a missing, invalid, or expired session token.
	ErrUnauthorized = &Error{Status: http.StatusUnauthorized, Detail: "Unauthorized."}
	// ErrAlreadyAuthenticated rejects unauthenticated-only actions attempted
	// while holding a live session.
	ErrAlreadyAuthenticated = &Error{Status: http.StatusForbidden, Detail: "Already authenticated."}
	// ErrUnverified reports valid credentials on a not-yet-verified account.
	ErrUnverified = &Error{Status: http.StatusForbidden, Detail: "User not verified. Please check your email."}
	// ErrDuplicateEmail and ErrDuplicateUsername report registration conflicts.
	ErrDuplicateEmail    = &Error{Status: http.StatusConflict, Detail: "A user with that email already exists."}
	ErrDuplicateUsername = &Error{Status: http.StatusConflict, Detail: "A user with that username already exists."}
	// ErrLinkUsed reports a single-use action link that was already consumed
	// or never reserved.
	ErrLinkUsed = &Error{Status: http.StatusConflict, Detail: "This link is invalid or has already been used."}
	// ErrTokenMalformed and ErrTokenExpired are the client-facing forms of
	// codec failures.
	ErrTokenMalformed = &Error{Status: http.StatusBadRequest, Detail: "Invalid verification token."}
	ErrTokenExpired   = &Error{Status: http.StatusBadRequest, Detail: "Verification token has expired."}
	// ErrInternal is returned for unexpected failures. The underlying cause
	// is logged, never sent to the client.
	ErrInternal = &Error{Status: http.StatusInternalServerError, Detail: "Internal server error."}
)

// ValidationError reports malformed input with a field-specific message.
func ValidationError(detail string) *Error {
	return &Error{Status: http.StatusBadRequest, Detail: detail}
}

// CooldownError reports a sensitive action retried before its cooldown
// elapsed, carrying the remaining wait for user-facing messaging.
func CooldownError(remainingSeconds int) *Error {
	if remainingSeconds < 1 {
		remainingSeconds = 1
	}
	return &Error{
		Status: http.StatusTooManyRequests,
		Detail: fmt.Sprintf("Please wait %d seconds before requesting again.", remainingSeconds),
	}
}

// AsError maps err to the client-facing *Error form. Unknown errors become
// ErrInternal so infrastructure detail never leaks.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal
}
