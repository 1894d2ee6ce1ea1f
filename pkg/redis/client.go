// Package redis provides a typed Redis client wrapper for the application.
package redis

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/fxnewsbot/backend/pkg/config"
)

// Client wraps the go-redis client to expose the helper methods the cache
// layer needs.
type Client struct {
	*redis.Client
}

// New creates a Redis client configured with cfg and verifies the connection with Ping.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb}, nil
}

// NewFromClient wraps an existing go-redis client; tests use this with miniredis.
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{rdb}
}

// Get retrieves a value for the provided key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

// Set stores a value under key with the specified TTL.
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

// SetNX stores a value only when the key does not exist yet, reporting
// whether the write happened.
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	return c.Client.SetNX(ctx, key, value, ttl).Result()
}

// Delete removes the specified keys.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return c.Client.Del(ctx, keys...).Err()
}

// DeleteByPattern removes every key matching the glob pattern using SCAN, so
// large keyspaces are not blocked the way KEYS would.
func (c *Client) DeleteByPattern(ctx context.Context, pattern string) error {
	iter := c.Client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	return c.Delete(ctx, keys...)
}

// IsNil reports whether err is the cache-miss sentinel.
func IsNil(err error) bool {
	return err == redis.Nil
}

// Close shuts down the Redis client.
func (c *Client) Close() error {
	return c.Client.Close()
}
