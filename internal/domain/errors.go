package domain

import "errors"

// Store errors shared by every repository implementation.
var (
	ErrNotFound         = errors.New("record not found")
	ErrConflict         = errors.New("record already exists")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ErrUnknownRole rejects role names outside the closed vocabulary.
var ErrUnknownRole = errors.New("unknown role")
