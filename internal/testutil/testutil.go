//go:build integration

// Package testutil provides helpers for integration tests that run against
// a real Redis instance, addressed by TEST_REDIS_URL.
package testutil

import (
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

const defaultRedisURL = "redis://localhost:6380/0"

// SetupRedis connects to the test Redis and registers cleanup.
func SetupRedis(t *testing.T) *redis.Client {
	t.Helper()

	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = defaultRedisURL
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("parse redis URL: %v", err)
	}
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { rdb.Close() })

	if err := rdb.Ping(t.Context()).Err(); err != nil {
		t.Fatalf("ping test redis: %v", err)
	}

	return rdb
}

// CleanupRedis flushes the test Redis database between tests.
func CleanupRedis(t *testing.T, rdb *redis.Client) {
	t.Helper()
	if err := rdb.FlushDB(t.Context()).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
}
