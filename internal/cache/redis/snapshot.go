package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/salvo/internal/wire"
)

func snapshotKey(gameID string) string { return "match:" + gameID + ":snapshot" }

// Get returns the cached snapshot for a match, or nil if there is none.
func (c *Client) Get(ctx context.Context, gameID string) (*wire.Snapshot, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	snap, err := wire.ParseSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("cached snapshot: %w", err)
	}
	return snap, nil
}

// Put stores snap under its game id with the client's TTL.
func (c *Client) Put(ctx context.Context, snap *wire.Snapshot) error {
	if snap.GameID == "" {
		return errors.New("put snapshot: missing game id")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.rdb.Set(ctx, snapshotKey(snap.GameID), data, c.ttl).Err()
}

// Delete drops the cached snapshot for a match (on match end).
func (c *Client) Delete(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, snapshotKey(gameID)).Err()
}
