package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldAccess   = "access_token"
	fieldRefresh  = "refresh_token"
	fieldExpires  = "expires_at"
	fieldRemember = "remember"
)

// RedisTier is a persistent tier shared by every process pointed at the same
// Redis key, e.g. several workers running under one service account.
type RedisTier struct {
	rdb redis.Cmdable
	key string
}

// NewRedisTier stores credentials in the hash at key.
func NewRedisTier(rdb redis.Cmdable, key string) *RedisTier {
	if key == "" {
		key = "hrdesk:credentials"
	}
	return &RedisTier{rdb: rdb, key: key}
}

func (t *RedisTier) Load(ctx context.Context) (*Credentials, error) {
	vals, err := t.rdb.HGetAll(ctx, t.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from redis: %w", err)
	}
	if vals[fieldAccess] == "" && vals[fieldRefresh] == "" {
		return nil, nil
	}

	creds := &Credentials{
		AccessToken:  vals[fieldAccess],
		RefreshToken: vals[fieldRefresh],
		Remember:     vals[fieldRemember] == "1",
	}
	if raw := vals[fieldExpires]; raw != "" {
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s in redis: %w", fieldExpires, err)
		}
		creds.ExpiresAt = time.Unix(unix, 0)
	}
	return creds, nil
}

// Save replaces the whole hash in one transaction so no reader sees a mixed pair.
func (t *RedisTier) Save(ctx context.Context, creds Credentials) error {
	remember := "0"
	if creds.Remember {
		remember = "1"
	}
	var expires string
	if !creds.ExpiresAt.IsZero() {
		expires = strconv.FormatInt(creds.ExpiresAt.Unix(), 10)
	}

	_, err := t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, t.key)
		pipe.HSet(ctx, t.key,
			fieldAccess, creds.AccessToken,
			fieldRefresh, creds.RefreshToken,
			fieldExpires, expires,
			fieldRemember, remember,
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write credentials to redis: %w", err)
	}
	return nil
}

func (t *RedisTier) Clear(ctx context.Context) error {
	if err := t.rdb.Del(ctx, t.key).Err(); err != nil {
		return fmt.Errorf("failed to delete credentials from redis: %w", err)
	}
	return nil
}
