package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Tier is the storage lifetime class of the stored credentials.
type Tier int

const (
	TierNone Tier = iota
	TierSession
	TierPersistent
)

func (t Tier) String() string {
	switch t {
	case TierSession:
		return "session"
	case TierPersistent:
		return "persistent"
	default:
		return "none"
	}
}

// Credentials is the token pair held by a tier.
// Remember is set when the pair was written to the persistent tier ("remember me").
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	Remember     bool      `json:"remember"`
}

// Store holds the current credentials in exactly one of two tiers.
// All composite reads and writes go through one RWMutex, so readers see
// either the old or the new token pair and never a mix.
type Store struct {
	mu         sync.RWMutex
	session    TierStore
	persistent TierStore
}

// NewStore builds a Store over a session-scoped and a persistent tier.
func NewStore(session, persistent TierStore) *Store {
	return &Store{session: session, persistent: persistent}
}

// Load returns the stored credentials and the tier holding them, or nil and TierNone.
func (s *Store) Load(ctx context.Context) (*Credentials, Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) (*Credentials, Tier, error) {
	creds, err := s.session.Load(ctx)
	if err != nil {
		return nil, TierNone, fmt.Errorf("failed to read session credentials: %w", err)
	}
	if creds != nil {
		return creds, TierSession, nil
	}
	creds, err = s.persistent.Load(ctx)
	if err != nil {
		return nil, TierNone, fmt.Errorf("failed to read persistent credentials: %w", err)
	}
	if creds != nil {
		return creds, TierPersistent, nil
	}
	return nil, TierNone, nil
}

// AccessToken returns the current access token, or "" when none is stored.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	creds, _, err := s.Load(ctx)
	if err != nil || creds == nil {
		return "", err
	}
	return creds.AccessToken, nil
}

// RefreshToken returns the current refresh token, or "" when none is stored.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	creds, _, err := s.Load(ctx)
	if err != nil || creds == nil {
		return "", err
	}
	return creds.RefreshToken, nil
}

// Tier reports which tier currently holds the credentials.
func (s *Store) Tier(ctx context.Context) (Tier, error) {
	_, tier, err := s.Load(ctx)
	return tier, err
}

// Write stores creds in the given tier and removes any copy from the other one.
// The other tier is cleared first.
func (s *Store) Write(ctx context.Context, creds Credentials, tier Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, creds, tier)
}

func (s *Store) write(ctx context.Context, creds Credentials, tier Tier) error {
	var target, other TierStore
	switch tier {
	case TierSession:
		target, other = s.session, s.persistent
		creds.Remember = false
	case TierPersistent:
		target, other = s.persistent, s.session
		creds.Remember = true
	default:
		return fmt.Errorf("cannot write credentials to tier %q", tier)
	}

	if err := other.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear %s credentials: %w", otherTier(tier), err)
	}
	if err := target.Save(ctx, creds); err != nil {
		return fmt.Errorf("failed to save %s credentials: %w", tier, err)
	}
	log.Debug().Str("tier", tier.String()).Msg("Credentials stored")
	return nil
}

// WriteRefreshed stores refreshed credentials in the tier chosen at login.
// Without a recorded choice the session tier is used.
func (s *Store) WriteRefreshed(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, tier, err := s.load(ctx)
	if err != nil {
		return err
	}
	if current == nil || !current.Remember {
		tier = TierSession
	} else {
		tier = TierPersistent
	}
	return s.write(ctx, creds, tier)
}

// Clear removes the credentials from both tiers, whichever one was active.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionErr := s.session.Clear(ctx)
	persistentErr := s.persistent.Clear(ctx)
	if sessionErr != nil {
		return fmt.Errorf("failed to clear session credentials: %w", sessionErr)
	}
	if persistentErr != nil {
		return fmt.Errorf("failed to clear persistent credentials: %w", persistentErr)
	}
	log.Debug().Msg("Credentials cleared from all tiers")
	return nil
}

func otherTier(t Tier) Tier {
	if t == TierSession {
		return TierPersistent
	}
	return TierSession
}
