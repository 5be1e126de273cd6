package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/habedi/hrdesk/auth"
	"github.com/habedi/hrdesk/pkg/validation"
)

// Defaults used when the environment leaves a value unset.
const (
	DefaultBaseURL        = "http://localhost:8080"
	DefaultTimeout        = 30 * time.Second
	DefaultRefreshTimeout = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultRedisKey       = "hrdesk:credentials"
	DefaultUserAgent      = "hrdesk-cli"

	maxRetriesLimit = 10
)

// Config holds everything the CLI needs to reach the HR backend and store credentials.
// Values come from HRDESK_* environment variables. Command-line flags override them.
type Config struct {
	BaseURL           string
	DBPath            string
	SessionDir        string
	Timeout           time.Duration
	RefreshTimeout    time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	RedisAddr         string
	RedisKey          string
	UserAgent         string
}

// Load reads the environment, fills in defaults and validates the result.
func Load() (Config, error) {
	var c Config
	var parseErrs []error

	c.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("HRDESK_BASE_URL")), "/")
	c.DBPath = strings.TrimSpace(os.Getenv("HRDESK_DB_PATH"))
	c.SessionDir = strings.TrimSpace(os.Getenv("HRDESK_SESSION_DIR"))
	c.RedisAddr = strings.TrimSpace(os.Getenv("HRDESK_REDIS_ADDR"))
	c.RedisKey = strings.TrimSpace(os.Getenv("HRDESK_REDIS_KEY"))
	c.UserAgent = strings.TrimSpace(os.Getenv("HRDESK_USER_AGENT"))

	var err error
	if c.Timeout, err = optionalDuration("HRDESK_TIMEOUT"); err != nil {
		parseErrs = append(parseErrs, err)
	}
	if c.RefreshTimeout, err = optionalDuration("HRDESK_REFRESH_TIMEOUT"); err != nil {
		parseErrs = append(parseErrs, err)
	}
	c.MaxRetries = -1
	if v, ok := lookup("HRDESK_MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("HRDESK_MAX_RETRIES must be an integer, got %q", v))
		}
		c.MaxRetries = n
	}
	if v, ok := lookup("HRDESK_RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("HRDESK_RPS must be a number, got %q", v))
		}
		c.RequestsPerSecond = f
	}

	if err := errors.Join(parseErrs...); err != nil {
		return Config{}, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath()
	}
	if c.SessionDir == "" {
		c.SessionDir = auth.DefaultSessionDir()
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RefreshTimeout == 0 {
		c.RefreshTimeout = DefaultRefreshTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RedisKey == "" {
		c.RedisKey = DefaultRedisKey
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if err := validation.ValidateBaseURL(c.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("HRDESK_BASE_URL: %w", err))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("HRDESK_DB_PATH is required"))
	}
	if c.SessionDir == "" {
		errs = append(errs, errors.New("HRDESK_SESSION_DIR is required"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("HRDESK_TIMEOUT must be positive, got %s", c.Timeout))
	}
	if c.RefreshTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HRDESK_REFRESH_TIMEOUT must be positive, got %s", c.RefreshTimeout))
	}
	if c.MaxRetries < 0 || c.MaxRetries > maxRetriesLimit {
		errs = append(errs, fmt.Errorf("HRDESK_MAX_RETRIES must be between 0 and %d, got %d", maxRetriesLimit, c.MaxRetries))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("HRDESK_RPS must not be negative, got %g", c.RequestsPerSecond))
	}
	return errors.Join(errs...)
}

// UsesRedis reports whether remembered logins go to Redis instead of the local database.
func (c Config) UsesRedis() bool { return c.RedisAddr != "" }

// DefaultDBPath is ~/.hrdesk/hrdesk.db.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".hrdesk", "hrdesk.db")
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func optionalDuration(key string) (time.Duration, error) {
	v, ok := lookup(key)
	if !ok {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s, got %q", key, v)
	}
	return d, nil
}
