package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"RelatedPosts/internal/config"
	"RelatedPosts/internal/ports"
)

// RedisCache implements ports.Cache on top of a Redis server.
type RedisCache struct {
	client *redis.Client
	prefix string
}

var _ ports.Cache = (*RedisCache)(nil)

// NewRedisCache builds a client from configuration; no connection is made yet.
func NewRedisCache(cfg config.CacheConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &RedisCache{client: client, prefix: cfg.KeyPrefix}
}

// Ping checks that the server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get returns the stored value; a missing key is not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value for ttl.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
