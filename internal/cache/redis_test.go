package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/copal/internal/cache"
	"github.com/oggyb/copal/internal/config"
)

func newCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestLikeCount_MissThenHit(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	_, ok, err := c.GetLikeCount(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.UpdateLikeCount(ctx, "u1", 7))
	n, ok, err := c.GetLikeCount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, cache.LikeCountTTL, mr.TTL(c.KeyForLikeCount("u1")))
}

func TestAdjustLikeCount(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	// missing key stays missing
	require.NoError(t, c.AdjustLikeCount(ctx, "u1", 1))
	assert.False(t, mr.Exists(c.KeyForLikeCount("u1")))

	require.NoError(t, c.UpdateLikeCount(ctx, "u1", 2))
	require.NoError(t, c.AdjustLikeCount(ctx, "u1", 1))
	require.NoError(t, c.AdjustLikeCount(ctx, "u1", -2))

	n, ok, err := c.GetLikeCount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), n)
}

func TestAdjustLikeCount_ExpiredKeyNotRecreated(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)
	key := c.KeyForLikeCount("u1")

	require.NoError(t, c.UpdateLikeCount(ctx, "u1", 3))
	mr.SetTTL(key, time.Minute)
	require.NoError(t, c.AdjustLikeCount(ctx, "u1", 1))
	assert.Equal(t, cache.LikeCountTTL, mr.TTL(key))

	mr.FastForward(2 * cache.LikeCountTTL)
	require.False(t, mr.Exists(key))

	require.NoError(t, c.AdjustLikeCount(ctx, "u1", -1))
	assert.False(t, mr.Exists(key))
}

func TestPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	sub := c.Subscribe(ctx, "copal:matches")
	defer sub.Close()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	n, err := c.Publish(ctx, "copal:matches", []byte(`{"id":"m1"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, `{"id":"m1"}`, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
