package domain

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("access denied")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username is already in use")
	ErrInvalidCredentials = errors.New("invalid username/password supplied")
	ErrUnknownSubject     = errors.New("token subject no longer exists")
)

// ErrAuthToken is the parent of every token failure. The HTTP layer maps it
// to a single status so callers cannot tell expiry from tampering.
var ErrAuthToken = errors.New("expired or invalid token")

var (
	ErrTokenExpired     = &tokenError{reason: "expired"}
	ErrInvalidSignature = &tokenError{reason: "invalid signature"}
	ErrTokenMalformed   = &tokenError{reason: "malformed"}
)

type tokenError struct {
	reason string
}

func (e *tokenError) Error() string { return "token " + e.reason }

// Unwrap lets errors.Is(err, ErrAuthToken) match every token failure.
func (e *tokenError) Unwrap() error { return ErrAuthToken }

// TokenErrorReason returns a short label for a token failure, or "" when err
// is not one. Used for metrics and logs.
func TokenErrorReason(err error) string {
	var te *tokenError
	if errors.As(err, &te) {
		return te.reason
	}
	return ""
}
