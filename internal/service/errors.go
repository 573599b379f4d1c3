package service

import "errors"

// Input and flow errors surfaced by the services.
var (
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidResetToken = errors.New("reset token is invalid or expired")
)
