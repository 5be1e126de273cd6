package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRefreshTimeout bounds a single call to the issuer.
const DefaultRefreshTimeout = 30 * time.Second

// RefreshGate runs at most one token refresh at a time.
//
// It is IDLE while no flight exists and REFRESHING while one does. Every request
// that hits an authentication failure during a flight is queued behind it as a
// waiter. When the refresh resolves the waiters are released one by one in the
// order they joined, and the gate only goes back to IDLE once the queue is empty.
type RefreshGate struct {
	issuer  Issuer
	store   CredentialStore
	ender   SessionEnder
	timeout time.Duration

	mu     sync.Mutex
	flight *flight
}

type flight struct {
	waiters []*waiter
}

type outcome struct {
	token string
	err   error
}

type waiter struct {
	ctx        context.Context
	result     chan outcome
	dispatched chan struct{}
	once       sync.Once
}

func (w *waiter) markDispatched() {
	w.once.Do(func() { close(w.dispatched) })
}

// GateOption configures a RefreshGate.
type GateOption func(*RefreshGate)

// WithRefreshTimeout bounds the issuer call. Zero or negative disables the bound.
func WithRefreshTimeout(d time.Duration) GateOption {
	return func(g *RefreshGate) { g.timeout = d }
}

// WithSessionEnder sets the action invoked once per failed refresh.
func WithSessionEnder(e SessionEnder) GateOption {
	return func(g *RefreshGate) { g.ender = e }
}

// NewRefreshGate creates an idle gate refreshing through issuer and persisting into store.
func NewRefreshGate(issuer Issuer, store CredentialStore, opts ...GateOption) *RefreshGate {
	g := &RefreshGate{
		issuer:  issuer,
		store:   store,
		timeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Refreshing reports whether a refresh is in flight or still releasing waiters.
func (g *RefreshGate) Refreshing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.flight != nil
}

// Release is handed to a waiter when its refresh succeeds.
// The holder must call Dispatch right before resubmitting (or when giving up),
// since the gate holds back the next waiter until then.
type Release struct {
	Token string
	w     *waiter
}

// Dispatch acknowledges that the waiter's replay is being sent.
func (r Release) Dispatch() {
	if r.w != nil {
		r.w.markDispatched()
	}
}

// Await is called after a request sent with sentWith was rejected.
//
// While IDLE it starts a refresh, unless the store already holds a different
// access token than sentWith. In that case the rejection came from a refresh
// that has already finished and the current token is returned directly, or the
// credentials were cleared in the meantime and ErrSessionExpired is returned
// without ending the session a second time. While
// REFRESHING the caller joins the queue. Either way Await blocks until the
// refresh resolves or ctx is done. An abandoned waiter does not stop the refresh.
func (g *RefreshGate) Await(ctx context.Context, sentWith string) (Release, error) {
	g.mu.Lock()
	f := g.flight
	if f == nil {
		current, err := g.store.AccessToken(ctx)
		if err == nil && current != sentWith {
			g.mu.Unlock()
			if current == "" {
				// Cleared after the request was sent, e.g. by a failed refresh.
				return Release{}, fmt.Errorf("%w: credentials were cleared", ErrSessionExpired)
			}
			log.Debug().Msg("Access token already rotated, replaying without refresh")
			return Release{Token: current}, nil
		}
		f = &flight{}
		g.flight = f
		go g.run(context.WithoutCancel(ctx), f)
	}
	w := &waiter{
		ctx:        ctx,
		result:     make(chan outcome, 1),
		dispatched: make(chan struct{}),
	}
	f.waiters = append(f.waiters, w)
	queued := len(f.waiters)
	g.mu.Unlock()

	log.Debug().Int("position", queued).Msg("Waiting for token refresh")

	select {
	case out := <-w.result:
		if out.err != nil {
			return Release{}, out.err
		}
		return Release{Token: out.token, w: w}, nil
	case <-ctx.Done():
		return Release{}, ctx.Err()
	}
}

// run performs the refresh for flight f and releases its waiters.
func (g *RefreshGate) run(ctx context.Context, f *flight) {
	token, err := g.refresh(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Token refresh failed, ending session")
		if clearErr := g.store.Clear(ctx); clearErr != nil {
			log.Error().Err(clearErr).Msg("Failed to clear credentials after refresh failure")
		}
		if g.ender != nil {
			g.ender.EndSession(ctx, err)
		}
		err = fmt.Errorf("%w: %w", ErrSessionExpired, err)
	} else {
		log.Info().Msg("Access token refreshed")
	}
	g.release(f, outcome{token: token, err: err})
}

func (g *RefreshGate) refresh(ctx context.Context) (string, error) {
	refreshToken, err := g.store.RefreshToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	tok, err := g.issuer.Refresh(callCtx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to perform token refresh: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return "", errors.New("issuer returned no access token")
	}

	creds := Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	// Keep the old refresh token if the issuer did not rotate it.
	if creds.RefreshToken == "" {
		creds.RefreshToken = refreshToken
	}
	if err := g.store.WriteRefreshed(ctx, creds); err != nil {
		return "", fmt.Errorf("failed to save refreshed token: %w", err)
	}
	return tok.AccessToken, nil
}

// release hands out the outcome in FIFO order. On success it waits for each
// waiter to dispatch (or be abandoned) before releasing the next one. Waiters
// joining during the release are served too. The flight ends with the queue.
func (g *RefreshGate) release(f *flight, out outcome) {
	released := 0
	for {
		g.mu.Lock()
		if len(f.waiters) == 0 {
			g.flight = nil
			g.mu.Unlock()
			log.Debug().Int("waiters", released).Msg("Refresh flight finished")
			return
		}
		w := f.waiters[0]
		f.waiters = f.waiters[1:]
		g.mu.Unlock()

		w.result <- out
		released++
		if out.err == nil {
			select {
			case <-w.dispatched:
			case <-w.ctx.Done():
			}
		}
	}
}
