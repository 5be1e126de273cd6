package auth

import "errors"

var (
	// ErrUnauthorized means the server rejected a request even after a token refresh,
	// or the issuer rejected the refresh token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSessionExpired is returned to every request queued behind a failed refresh.
	// The credential store has been cleared by the time it is observed.
	ErrSessionExpired = errors.New("session expired, please log in again")

	// ErrNoRefreshToken is the refresh failure used when the store holds no refresh token.
	ErrNoRefreshToken = errors.New("no refresh token stored")

	// ErrNoCredentials is returned by callers that require a stored login.
	ErrNoCredentials = errors.New("not logged in")
)
