package auth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// Pipeline performs the actual network call for a fully formed request.
type Pipeline interface {
	Do(req *http.Request) (*http.Response, error)
}

// Issuer exchanges a refresh token for a new access token.
// The returned token's RefreshToken is empty when the issuer does not rotate it.
type Issuer interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// SessionEnder is told once per failed refresh that the user has to log in again.
type SessionEnder interface {
	EndSession(ctx context.Context, cause error)
}

// SessionEnderFunc adapts a plain function to SessionEnder.
type SessionEnderFunc func(ctx context.Context, cause error)

func (f SessionEnderFunc) EndSession(ctx context.Context, cause error) { f(ctx, cause) }

// CredentialStore is the view of the token store the coordinator and the refresh gate need.
type CredentialStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	WriteRefreshed(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
}

// TierStore is one lifetime tier of the credential store.
// Load returns nil, nil when the tier holds nothing.
type TierStore interface {
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
}
