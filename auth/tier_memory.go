package auth

import (
	"context"
	"sync"
)

// MemoryTier keeps credentials for the lifetime of the process.
type MemoryTier struct {
	mu    sync.RWMutex
	creds *Credentials
}

func NewMemoryTier() *MemoryTier { return &MemoryTier{} }

func (m *MemoryTier) Load(_ context.Context) (*Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.creds == nil {
		return nil, nil
	}
	c := *m.creds
	return &c, nil
}

func (m *MemoryTier) Save(_ context.Context, creds Credentials) error {
	m.mu.Lock()
	m.creds = &creds
	m.mu.Unlock()
	return nil
}

func (m *MemoryTier) Clear(_ context.Context) error {
	m.mu.Lock()
	m.creds = nil
	m.mu.Unlock()
	return nil
}
