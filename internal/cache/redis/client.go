// Package redis caches the last authoritative snapshot of each match so a
// client re-entering a match can render something before its first fetch.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a cached snapshot is kept.
const DefaultTTL = 6 * time.Hour

// Client wraps the Redis client for snapshot caching.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a Redis client from a connection URL.
func NewClient(ctx context.Context, redisURL string, ttl time.Duration) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewClientFromPool(rdb, ttl), nil
}

// NewClientFromPool wraps an existing redis.Client for use in tests.
func NewClientFromPool(rdb *redis.Client, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Client{rdb: rdb, ttl: ttl}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
