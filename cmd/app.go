package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/habedi/hrdesk/auth"
	"github.com/habedi/hrdesk/client"
	"github.com/habedi/hrdesk/config"
	"github.com/habedi/hrdesk/db"
	"github.com/habedi/hrdesk/pkg/clierr"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app is everything a command needs, wired for one invocation.
type app struct {
	cfg      config.Config
	store    *auth.Store
	pipeline *client.Pipeline
	gate     *auth.RefreshGate
	api      *client.API

	closers     []func() error
	notice      sync.Once
	noticeShown atomic.Bool
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	persistent, err := a.openPersistentTier(cmd.Context())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = auth.NewStore(auth.NewFileTier(cfg.SessionDir), persistent)

	a.pipeline = client.NewPipeline(client.PipelineConfig{
		Timeout:           cfg.Timeout,
		UserAgent:         cfg.UserAgent,
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxRetries:        cfg.MaxRetries,
	})
	a.gate = auth.NewRefreshGate(
		client.NewIssuer(cfg.BaseURL, a.pipeline),
		a.store,
		auth.WithRefreshTimeout(cfg.RefreshTimeout),
		auth.WithSessionEnder(a.sessionEnder(cmd.ErrOrStderr())),
	)
	a.api, err = client.NewAPI(cfg.BaseURL, auth.NewCoordinator(a.pipeline, a.store, a.gate))
	if err != nil {
		a.Close()
		return nil, clierr.New(clierr.Validation, err.Error(), err)
	}
	return a, nil
}

// openPersistentTier picks Redis when configured and the local database otherwise.
func (a *app) openPersistentTier(ctx context.Context) (auth.TierStore, error) {
	if a.cfg.UsesRedis() {
		rdb := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, clierr.New(clierr.Network, fmt.Sprintf("could not reach Redis at %s", a.cfg.RedisAddr), err)
		}
		log.Debug().Str("addr", a.cfg.RedisAddr).Msg("Using Redis for remembered logins")
		return auth.NewRedisTier(rdb, a.cfg.RedisKey), nil
	}

	db.Path = a.cfg.DBPath
	if err := db.InitDB(); err != nil {
		return nil, clierr.New(clierr.Internal, "failed to open the local database", err)
	}
	a.closers = append(a.closers, db.CloseDB)
	return auth.NewDBTier(db.NewTokenRepository(db.GetDB())), nil
}

// sessionEnder prints the "log in again" notice at most once per invocation.
func (a *app) sessionEnder(w io.Writer) auth.SessionEnder {
	return auth.SessionEnderFunc(func(_ context.Context, cause error) {
		log.Warn().Err(cause).Msg("Session ended")
		a.notice.Do(func() {
			fmt.Fprintln(w, "Your session has expired. Run `hrdesk login` to sign in again.")
			a.noticeShown.Store(true)
		})
	})
}

// Close releases the database or Redis connection.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Error().Err(err).Msg("Failed to close resource")
		}
	}
	a.closers = nil
}

// loadConfig reads the environment and applies the flags set on the command line.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, clierr.New(clierr.Validation, fmt.Sprintf("invalid configuration: %v", err), err)
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("db-path") {
		cfg.DBPath, _ = flags.GetString("db-path")
	}
	if flags.Changed("session-dir") {
		cfg.SessionDir, _ = flags.GetString("session-dir")
	}
	if flags.Changed("redis-addr") {
		cfg.RedisAddr, _ = flags.GetString("redis-addr")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("refresh-timeout") {
		cfg.RefreshTimeout, _ = flags.GetDuration("refresh-timeout")
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries, _ = flags.GetInt("max-retries")
	}
	if flags.Changed("rps") {
		cfg.RequestsPerSecond, _ = flags.GetFloat64("rps")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, clierr.New(clierr.Validation, fmt.Sprintf("invalid configuration: %v", err), err)
	}
	return cfg, nil
}
