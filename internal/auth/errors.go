package auth

import "errors"

var (
	// ErrConfigurationMissing is returned at startup when a required setting is unset
	ErrConfigurationMissing = errors.New("authentication configuration missing")

	// ErrProviderUnavailable wraps failures of the identity provider backend
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// ErrInvalidCredential is returned by credential checks that reject the input
	ErrInvalidCredential = errors.New("invalid credential")
)
