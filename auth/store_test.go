package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/habedi/hrdesk/db"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMemoryStore() (*Store, *MemoryTier, *MemoryTier) {
	session, persistent := NewMemoryTier(), NewMemoryTier()
	return NewStore(session, persistent), session, persistent
}

func TestStore_WriteIsTierExclusive(t *testing.T) {
	ctx := context.Background()
	store, session, persistent := newMemoryStore()

	require.NoError(t, store.Write(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"}, TierPersistent))
	creds, tier, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, TierPersistent, tier)
	assert.True(t, creds.Remember)

	require.NoError(t, store.Write(ctx, Credentials{AccessToken: "a2", RefreshToken: "r2"}, TierSession))
	p, err := persistent.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, p, "persistent copy must be gone after a session write")
	s, err := session.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "a2", s.AccessToken)
	assert.False(t, s.Remember)

	require.NoError(t, store.Write(ctx, Credentials{AccessToken: "a3", RefreshToken: "r3"}, TierPersistent))
	s, err = session.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, s, "session copy must be gone after a persistent write")
}

func TestStore_WriteToNoTierFails(t *testing.T) {
	store, _, _ := newMemoryStore()
	err := store.Write(context.Background(), Credentials{AccessToken: "a"}, TierNone)
	assert.Error(t, err)
}

func TestStore_Accessors(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newMemoryStore()

	access, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, access)
	tier, err := store.Tier(ctx)
	require.NoError(t, err)
	assert.Equal(t, TierNone, tier)

	require.NoError(t, store.Write(ctx, Credentials{AccessToken: "a", RefreshToken: "r"}, TierSession))
	access, err = store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", access)
	refresh, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r", refresh)
	tier, err = store.Tier(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session", tier.String())
}

func TestStore_ClearEmptiesBothTiers(t *testing.T) {
	ctx := context.Background()
	store, session, persistent := newMemoryStore()
	require.NoError(t, store.Write(ctx, Credentials{AccessToken: "a", RefreshToken: "r"}, TierPersistent))
	// A stray copy in the other tier is removed as well.
	require.NoError(t, session.Save(ctx, Credentials{AccessToken: "stray"}))

	require.NoError(t, store.Clear(ctx))

	creds, tier, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)
	assert.Equal(t, TierNone, tier)
	p, _ := persistent.Load(ctx)
	assert.Nil(t, p)
}

func TestStore_WriteRefreshedKeepsTier(t *testing.T) {
	tests := []struct {
		name  string
		login Tier
		want  Tier
	}{
		{"session login", TierSession, TierSession},
		{"persistent login", TierPersistent, TierPersistent},
		{"no login", TierNone, TierSession},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, _, _ := newMemoryStore()
			if tt.login != TierNone {
				require.NoError(t, store.Write(ctx, Credentials{AccessToken: "old", RefreshToken: "r"}, tt.login))
			}

			require.NoError(t, store.WriteRefreshed(ctx, Credentials{AccessToken: "new", RefreshToken: "r"}))

			creds, tier, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tier)
			assert.Equal(t, "new", creds.AccessToken)
		})
	}
}

func TestMemoryTier_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	tier := NewMemoryTier()
	require.NoError(t, tier.Save(ctx, Credentials{AccessToken: "a"}))

	creds, err := tier.Load(ctx)
	require.NoError(t, err)
	creds.AccessToken = "mutated"

	again, err := tier.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", again.AccessToken)
}

func TestFileTier(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "run")
	tier := NewFileTier(dir)

	creds, err := tier.Load(ctx)
	require.NoError(t, err, "a missing file is an empty tier")
	assert.Nil(t, creds)

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, tier.Save(ctx, Credentials{AccessToken: "a", RefreshToken: "r", ExpiresAt: expires}))

	info, err := os.Stat(tier.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	creds, err = tier.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "a", creds.AccessToken)
	assert.Equal(t, "r", creds.RefreshToken)
	assert.True(t, expires.Equal(creds.ExpiresAt))

	require.NoError(t, tier.Clear(ctx))
	require.NoError(t, tier.Clear(ctx), "clearing twice is harmless")
	creds, err = tier.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestFileTier_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	tier := NewFileTier(dir)
	require.NoError(t, os.WriteFile(tier.Path, []byte("{not json"), 0o600))

	_, err := tier.Load(context.Background())
	assert.Error(t, err)
}

func TestDefaultSessionDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, filepath.Join("/run/user/1000", "hrdesk"), DefaultSessionDir())

	t.Setenv("XDG_RUNTIME_DIR", "")
	assert.Contains(t, DefaultSessionDir(), "hrdesk-")
}

func TestDBTier(t *testing.T) {
	ctx := context.Background()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&db.Token{}))

	tier := NewDBTier(db.NewTokenRepository(conn))

	creds, err := tier.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)

	require.NoError(t, tier.Save(ctx, Credentials{AccessToken: "a", RefreshToken: "r", Remember: true}))
	creds, err = tier.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "a", creds.AccessToken)
	assert.True(t, creds.Remember)

	require.NoError(t, tier.Clear(ctx))
	creds, err = tier.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestRedisTier(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	tier := NewRedisTier(rdb, "")

	creds, err := tier.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)

	expires := time.Unix(1_900_000_000, 0)
	require.NoError(t, tier.Save(ctx, Credentials{AccessToken: "a", RefreshToken: "r", ExpiresAt: expires, Remember: true}))
	assert.Equal(t, "a", mr.HGet("hrdesk:credentials", "access_token"))

	creds, err = tier.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "r", creds.RefreshToken)
	assert.True(t, creds.Remember)
	assert.True(t, expires.Equal(creds.ExpiresAt))

	require.NoError(t, tier.Clear(ctx))
	assert.False(t, mr.Exists("hrdesk:credentials"))
}

func TestStore_RedisPersistentTier(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	session := NewFileTier(t.TempDir())
	store := NewStore(session, NewRedisTier(rdb, "test:creds"))

	require.NoError(t, store.Write(ctx, Credentials{AccessToken: "a", RefreshToken: "r"}, TierSession))
	require.NoError(t, store.Write(ctx, Credentials{AccessToken: "b", RefreshToken: "r"}, TierPersistent))

	_, err := os.Stat(session.Path)
	assert.True(t, os.IsNotExist(err), "session file removed by the persistent write")
	assert.Equal(t, "1", mr.HGet("test:creds", "remember"))
}

func TestRedisTier_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	_, err := NewRedisTier(rdb, "k").Load(context.Background())
	assert.Error(t, err)
}
