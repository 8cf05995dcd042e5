package service

import "errors"

// Sentinel errors returned by the service layer. The HTTP layer maps them to
// status codes and error envelopes; wrap with %w and match with errors.Is.
var (
	ErrValidation         = errors.New("validation_failed")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrTokenExpired       = errors.New("token_expired")
	ErrTokenInvalid       = errors.New("invalid_token")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")

	// ErrMissingSigningSecret is fatal at startup.
	ErrMissingSigningSecret = errors.New("signing secret missing or shorter than 32 bytes")
)
