package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pigmap/internal/cache"
)

func setupGuard(t *testing.T) (*miniredis.Miniredis, cache.ActionGuard) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, cache.NewActionGuard(client)
}

func TestActionGuard_ClaimOnce(t *testing.T) {
	_, guard := setupGuard(t)
	ctx := context.Background()
	key := cache.ReportKey("m1", "code-a")

	ok, err := guard.Claim(ctx, key, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Claim(ctx, key, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "second claim within TTL must fail")

	ok, err = guard.Claim(ctx, cache.ReportKey("m1", "code-b"), 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "different reporter is independent")
}

func TestActionGuard_ExpiresAfterTTL(t *testing.T) {
	mr, guard := setupGuard(t)
	ctx := context.Background()
	key := cache.UpvoteKey("regular", "m1", "code-a")

	ok, err := guard.Claim(ctx, key, 24*time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 24*time.Hour, mr.TTL(key))

	mr.FastForward(24*time.Hour + time.Second)

	ok, err = guard.Claim(ctx, key, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestActionGuard_Release(t *testing.T) {
	_, guard := setupGuard(t)
	ctx := context.Background()
	key := cache.UpvoteKey("ongoing", "m1", "code-a")

	_, err := guard.Claim(ctx, key, time.Hour)
	require.NoError(t, err)
	require.NoError(t, guard.Release(ctx, key))

	ok, err := guard.Claim(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestActionGuard_StoreDown(t *testing.T) {
	mr, guard := setupGuard(t)
	mr.Close()

	_, err := guard.Claim(context.Background(), "k", time.Hour)
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "reported:abc:xyz", cache.ReportKey("abc", "xyz"))
	assert.Equal(t, "upvoted_ongoing_abc_xyz", cache.UpvoteKey("ongoing", "abc", "xyz"))
}
