package credential

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	cred := Credential{Token: "T1", IssuedAt: time.Now(), ValidFor: 2 * time.Hour}
	require.NoError(t, store.Save(ctx, cred))

	got, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "T1", got.Token)
	require.Equal(t, cred.ExpiresAt(), got.ExpiresAt())

	require.NoError(t, store.Clear(ctx))
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreErrorsSurfaceOnDeadBackend(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  50 * time.Millisecond,
		ReadTimeout:  50 * time.Millisecond,
		WriteTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	store := NewRedisStore(rdb, "")
	ctx := context.Background()

	_, _, err := store.Load(ctx)
	require.Error(t, err)

	err = store.Save(ctx, Credential{Token: "T1", IssuedAt: time.Now(), ValidFor: time.Hour})
	require.Error(t, err)

	require.Error(t, store.Clear(ctx))
}

func TestRedisStoreSkipsSavingExpiredCredential(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	store := NewRedisStore(rdb, "custom:key")
	// 已过期的凭证没有可用 TTL，直接跳过写入，不应触碰 Redis
	err := store.Save(context.Background(), Credential{
		Token:    "expired",
		IssuedAt: time.Now().Add(-2 * time.Hour),
		ValidFor: time.Hour,
	})
	require.NoError(t, err)
}
