package auth

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

const bearerPrefix = "Bearer "

// Coordinator wraps a Pipeline with bearer authentication and single-flight
// token refresh. It satisfies Pipeline itself, so it can be used wherever a
// plain client is expected.
type Coordinator struct {
	pipeline    Pipeline
	store       CredentialStore
	gate        *RefreshGate
	authFailure func(*http.Response) bool
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithAuthFailure replaces the check that decides whether a response means
// the access token was rejected. The default matches HTTP 401 only.
func WithAuthFailure(fn func(*http.Response) bool) CoordinatorOption {
	return func(c *Coordinator) { c.authFailure = fn }
}

// NewCoordinator creates a Coordinator sending through pipeline, reading tokens
// from store and refreshing through gate.
func NewCoordinator(pipeline Pipeline, store CredentialStore, gate *RefreshGate, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		pipeline:    pipeline,
		store:       store,
		gate:        gate,
		authFailure: isUnauthorized,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func isUnauthorized(resp *http.Response) bool {
	return resp.StatusCode == http.StatusUnauthorized
}

// Do sends req with the current access token.
//
// If the server rejects the token, Do waits for a refresh (starting one if
// none is running) and resubmits the request once with the new token. A second
// rejection returns an error wrapping ErrUnauthorized. A failed refresh returns
// an error wrapping ErrSessionExpired. Every other response, 403 included, and
// every transport error is returned unchanged.
func (c *Coordinator) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	body, err := snapshotBody(req)
	if err != nil {
		return nil, err
	}

	token, err := c.store.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}

	resp, err := c.pipeline.Do(attach(req, body, token))
	if err != nil {
		return nil, err
	}
	if !c.authFailure(resp) {
		return resp, nil
	}
	discard(resp)

	log.Debug().Str("method", req.Method).Str("url", req.URL.Redacted()).Msg("Access token rejected")

	release, err := c.gate.Await(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		release.Dispatch()
		return nil, err
	}

	retry := attach(req, body, release.Token)
	release.Dispatch()

	resp, err = c.pipeline.Do(retry)
	if err != nil {
		return nil, err
	}
	if c.authFailure(resp) {
		discard(resp)
		return nil, fmt.Errorf("%w: %s %s rejected after token refresh", ErrUnauthorized, req.Method, req.URL.Redacted())
	}
	return resp, nil
}

// attach returns a copy of req carrying token and a fresh reader over body.
// An empty token sends the request unauthenticated.
func attach(req *http.Request, body []byte, token string) *http.Request {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", bearerPrefix+token)
	} else {
		out.Header.Del("Authorization")
	}
	if body != nil {
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		out.ContentLength = int64(len(body))
	}
	return out
}

// snapshotBody reads the request body once so the request can be replayed.
func snapshotBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	b, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return b, nil
}

// discard drains and closes a response that will not reach the caller,
// so its connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
