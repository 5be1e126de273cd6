package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const sessionFileName = "session.json"

// FileTier keeps credentials in a JSON file readable only by the owner.
// Placed in the runtime directory it lives as long as the login session.
type FileTier struct {
	Path string
}

// NewFileTier returns a FileTier writing to dir/session.json.
func NewFileTier(dir string) *FileTier {
	return &FileTier{Path: filepath.Join(dir, sessionFileName)}
}

// DefaultSessionDir returns $XDG_RUNTIME_DIR/hrdesk, or a per-user directory under
// the system temp dir when no runtime dir is set.
func DefaultSessionDir() string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "hrdesk")
	}
	return filepath.Join(os.TempDir(), "hrdesk-"+strconv.Itoa(os.Getuid()))
}

func (f *FileTier) Load(_ context.Context) (*Credentials, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(b, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return nil, nil
	}
	return &creds, nil
}

// Save writes through a temp file and a rename so readers never see a half-written file.
func (f *FileTier) Save(_ context.Context, creds Credentials) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, sessionFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set session file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (f *FileTier) Clear(_ context.Context) error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
