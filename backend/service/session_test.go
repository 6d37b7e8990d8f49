package service

import (
	"context"
	"testing"
	"time"

	"github.com/faawibowo/pakta/backend/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

	revoked, _ = store.IsRevoked(ctx, "jti-1")
	assert.True(t, revoked)

	revoked, _ = store.IsRevoked(ctx, "jti-2")
	assert.False(t, revoked)
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()
	now := time.Now()
	store.now = func() time.Time { return now }

	// Already expired tokens are not recorded
	require.NoError(t, store.Revoke(ctx, "old", now.Add(-time.Minute)))
	assert.Empty(t, store.revoked)

	require.NoError(t, store.Revoke(ctx, "jti", now.Add(time.Minute)))
	revoked, _ := store.IsRevoked(ctx, "jti")
	assert.True(t, revoked)

	store.now = func() time.Time { return now.Add(2 * time.Minute) }
	revoked, _ = store.IsRevoked(ctx, "jti")
	assert.False(t, revoked)
	assert.Empty(t, store.revoked)
}

// TestRedisSessionStoreIntegration requires a running Redis.
func TestRedisSessionStoreIntegration(t *testing.T) {
	store := NewRedisSessionStore(&config.RedisConfig{Addr: "localhost:6379", Prefix: "pakta:test:revoked:"})
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}

	jti := uuid.NewString()
	revoked, err := store.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, jti, time.Now().Add(time.Minute)))
	revoked, err = store.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRedisSessionStoreKey(t *testing.T) {
	store := NewRedisSessionStore(&config.RedisConfig{Addr: "localhost:6379", Prefix: "pakta:revoked:"})
	defer store.Close()
	assert.Equal(t, "pakta:revoked:abc", store.key("abc"))
}
