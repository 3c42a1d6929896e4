package auth

import "errors"

// Sentinel errors for credential handling.
var (
	// ErrMissingCredentials is returned when no credential material is set.
	ErrMissingCredentials = errors.New("auth: missing credentials")

	// ErrTokenExpired is returned when a bearer token is expired and no
	// refresh callback is configured.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrRefreshFailed is returned when the refresh callback fails.
	ErrRefreshFailed = errors.New("auth: token refresh failed")
)
