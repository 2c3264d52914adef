package federation

import "errors"

var (
	ErrProviderNotFound = errors.New("provider not found or not enabled")
	ErrInvalidAuthState = errors.New("invalid auth state parameter")
	ErrMissingTenant    = errors.New("tenant id is required")
)
