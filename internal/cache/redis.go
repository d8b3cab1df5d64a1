package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/oggyb/copal/internal/config"
	"github.com/redis/go-redis/v9"
)

// LikeCountTTL is how long a cached liked-you counter lives without access.
const LikeCountTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForLikeCount generates Redis key for a user's liked-you count
func (c *RedisCache) KeyForLikeCount(userID string) string {
	return fmt.Sprintf("likes:count:%s", userID)
}

// UpdateLikeCount stores an authoritative count and refreshes the TTL.
func (c *RedisCache) UpdateLikeCount(ctx context.Context, userID string, count int64) error {
	return c.Client.Set(ctx, c.KeyForLikeCount(userID), count, LikeCountTTL).Err()
}

// GetLikeCount returns the cached count. ok is false on a cache miss.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID string) (count int64, ok bool, err error) {
	key := c.KeyForLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, LikeCountTTL).Err()
	return n, true, nil
}

// AdjustLikeCount moves a cached counter by delta. A missing key is left
// missing so the next read recomputes it from the database.
func (c *RedisCache) AdjustLikeCount(ctx context.Context, userID string, delta int64) error {
	key := c.KeyForLikeCount(userID)
	return adjustIfExists.Run(ctx, c.Client, []string{key}, delta, int64(LikeCountTTL/time.Second)).Err()
}

var adjustIfExists = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("INCRBY", KEYS[1], ARGV[1])
redis.call("EXPIRE", KEYS[1], ARGV[2])
return 1
`)

// Publish sends payload on a pub/sub channel and reports how many
// subscribers received it.
func (c *RedisCache) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	return c.Client.Publish(ctx, channel, payload).Result()
}

// Subscribe opens a pub/sub subscription. Callers must Close it.
func (c *RedisCache) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return c.Client.Subscribe(ctx, channel)
}
