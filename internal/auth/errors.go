package auth

import "errors"

// Authentication and authorization failures. None of these indicate an
// infrastructure fault; those surface as domain.ErrStoreUnavailable.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrCorruptCredential  = errors.New("corrupt credential")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrPasswordTooLong    = errors.New("password is too long")

	ErrMissingToken     = errors.New("missing session token")
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrSessionNotFound  = errors.New("session not found")

	ErrForbidden = errors.New("insufficient role")
)
