package cache

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "cliqspot:access-token:"

// RedisCache is a [TokenCache] shared between processes through Redis.
//
// Redis failures are logged and treated as misses.
type RedisCache struct {
	client redis.Cmdable
	logger *log.Logger
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client redis.Cmdable, logger *log.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

// NewRedisClient opens a client for addr and verifies it with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, userID string) (string, bool) {
	token, err := c.client.Get(ctx, keyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.logger.Warn("access token cache read failed", "user", userID, "error", err)
		return "", false
	}
	return token, true
}

func (c *RedisCache) Set(ctx context.Context, userID, accessToken string, ttl time.Duration) {
	if ttl <= 0 || accessToken == "" {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+userID, accessToken, ttl).Err(); err != nil {
		c.logger.Warn("access token cache write failed", "user", userID, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, keyPrefix+userID).Err(); err != nil {
		c.logger.Warn("access token cache delete failed", "user", userID, "error", err)
	}
}
