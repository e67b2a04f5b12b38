package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisSettlementCache caches liquidation summaries in Redis. Finished
// routes are immutable, so entries never need invalidation, only expiry.
type redisSettlementCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSettlementCache creates a settlement cache backed by Redis.
func NewRedisSettlementCache(client *redis.Client, ttl time.Duration) SettlementCache {
	return &redisSettlementCache{client: client, ttl: ttl}
}

func settlementKey(routeID int64) string {
	return fmt.Sprintf("rutero:settlement:%d", routeID)
}

func (c *redisSettlementCache) Get(ctx context.Context, routeID int64) (*Settlement, bool) {
	raw, err := c.client.Get(ctx, settlementKey(routeID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("settlement cache read failed", "route_id", routeID, "error", err)
		}
		return nil, false
	}

	var settlement Settlement
	if err := json.Unmarshal(raw, &settlement); err != nil {
		slog.Warn("settlement cache entry corrupt", "route_id", routeID, "error", err)
		return nil, false
	}
	return &settlement, true
}

func (c *redisSettlementCache) Set(ctx context.Context, settlement *Settlement) {
	// Only finished routes are frozen; anything else would go stale.
	if settlement == nil || settlement.Status != StatusFinished {
		return
	}

	raw, err := json.Marshal(settlement)
	if err != nil {
		slog.Warn("settlement cache encode failed", "route_id", settlement.RouteID, "error", err)
		return
	}
	if err := c.client.Set(ctx, settlementKey(settlement.RouteID), raw, c.ttl).Err(); err != nil {
		slog.Warn("settlement cache write failed", "route_id", settlement.RouteID, "error", err)
	}
}
