// Package common defines shared constants and sentinel errors used across
// client and server layers of manokeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrVersionConflict = errors.New("version conflict")

	// ErrValidation marks a rejected input (passphrase too short, mismatch, ...).
	ErrValidation = errors.New("validation error")

	// ErrLocked is returned when an organisation is locked for encryption
	// by another user.
	ErrLocked = errors.New("organisation locked for encryption")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
