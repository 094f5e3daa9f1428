package domain

import "errors"

var (
	ErrInvalidSignature    = errors.New("invalid_signature")
	ErrInvalidPayload      = errors.New("invalid_payload")
	ErrProviderUnavailable = errors.New("payment_provider_unavailable")
	ErrSessionNotFound     = errors.New("checkout_session_not_found")
	ErrNotConfigured       = errors.New("payment_provider_not_configured")
)
