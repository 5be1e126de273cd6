package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/habedi/hrdesk/auth"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	loginPath   = "/api/auth/login"
	refreshPath = "/api/auth/refresh"
	logoutPath  = "/api/auth/logout"
)

// Issuer exchanges refresh tokens at the HR backend. It must be given the plain
// pipeline, never the coordinator, since a rejected refresh must not trigger another refresh.
type Issuer struct {
	BaseURL  string
	pipeline auth.Pipeline
}

// NewIssuer returns an Issuer posting to baseURL through pipeline.
func NewIssuer(baseURL string, pipeline auth.Pipeline) *Issuer {
	return &Issuer{BaseURL: strings.TrimRight(baseURL, "/"), pipeline: pipeline}
}

// Refresh sends the refresh token and returns the new pair. A rotated refresh
// token is returned in RefreshToken, otherwise RefreshToken is empty.
// A 401 or 403 from the backend wraps auth.ErrUnauthorized.
func (c *Issuer) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	log.Debug().Msg("Requesting token refresh")
	tok, err := postToken(ctx, c.pipeline, c.BaseURL+refreshPath, map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return tok, nil
}

// Login exchanges an email and password for a token pair.
func Login(ctx context.Context, pipeline auth.Pipeline, baseURL, email, password string) (*oauth2.Token, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password cannot be empty")
	}
	log.Info().Str("email", email).Msg("Logging in")
	tok, err := postToken(ctx, pipeline, strings.TrimRight(baseURL, "/")+loginPath, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if tok.RefreshToken == "" {
		log.Warn().Msg("Login returned no refresh token, the session will end when the access token expires")
	}
	return tok, nil
}

// Logout tells the backend to revoke the refresh token. Failures are returned but
// callers usually clear local credentials regardless.
func Logout(ctx context.Context, pipeline auth.Pipeline, baseURL, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+logoutPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := pipeline.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPError(req, resp)
	}
	resp.Body.Close()
	return nil
}

func postToken(ctx context.Context, pipeline auth.Pipeline, url string, payload map[string]string) (*oauth2.Token, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pipeline.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: %w", auth.ErrUnauthorized, newHTTPError(req, resp))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPError(req, resp)
	}

	var result tokenResponse
	if err := decodeJSON(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("token API error: %s", result.Error)
	}
	if result.AccessToken == "" {
		return nil, errors.New("token response has no access_token")
	}

	tok := &oauth2.Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    result.TokenType,
	}
	if result.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
	}
	return tok, nil
}
