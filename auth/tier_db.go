package auth

import (
	"context"

	"github.com/habedi/hrdesk/db"
)

// DBTier is the persistent tier backed by the local SQLite database.
type DBTier struct {
	repo db.TokenRepository
}

func NewDBTier(repo db.TokenRepository) *DBTier { return &DBTier{repo: repo} }

func (t *DBTier) Load(ctx context.Context) (*Credentials, error) {
	token, err := t.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return nil, nil
	}
	return &Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt,
		Remember:     token.Remember,
	}, nil
}

func (t *DBTier) Save(ctx context.Context, creds Credentials) error {
	return t.repo.Upsert(ctx, &db.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    creds.ExpiresAt,
		Remember:     creds.Remember,
	})
}

func (t *DBTier) Clear(ctx context.Context) error {
	return t.repo.Delete(ctx)
}
