package domain

import "errors"

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrPaymentRequired   = errors.New("payment required")
	ErrVenueUnavailable  = errors.New("venue unavailable")

	// Informational outcome. Callers that hit it receive the existing
	// token, not a failure.
	ErrAlreadyTokenized = errors.New("request already tokenized")

	// Verify reasons, kept distinct so the client can render accurate
	// guidance for each.
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenRevoked  = errors.New("token revoked")
	ErrTokenConsumed = errors.New("token consumed")

	ErrSerializationFailure = errors.New("serialization failure")
)
