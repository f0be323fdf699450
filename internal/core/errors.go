// errors.go

package core

import (
	"errors"
)

// Sentinel errors for the whole service. Layers wrap these with
// fmt.Errorf("op: %w", err); the HTTP boundary translates them exactly once.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("not authorized")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicateKey = errors.New("duplicate key")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenUsed    = errors.New("token already used")
	ErrTokenInvalid = errors.New("token invalid")
)

// IsBadRequest reports whether err belongs to the family of failures that
// map to a 400 response: malformed input, validation failures, and storage
// integrity violations surfaced as duplicate keys.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDuplicateKey)
}
