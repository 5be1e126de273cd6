package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryHint reads the exp claim of a JWT access token without verifying it.
// It is only meant for display. The coordinator treats tokens as opaque and
// never consults it. ok is false for non-JWT tokens or tokens without exp.
func ExpiryHint(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expiry returns when creds stop being valid: the stored expiry if known,
// else the access token's exp claim. ok is false when neither is available.
func (c Credentials) Expiry() (time.Time, bool) {
	if !c.ExpiresAt.IsZero() {
		return c.ExpiresAt, true
	}
	return ExpiryHint(c.AccessToken)
}
