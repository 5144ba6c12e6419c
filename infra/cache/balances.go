// Package cache provides a Redis read-through cache for wallet balances.
// The cache is never authoritative: every entry carries a short TTL, every
// miss or Redis error falls through to the repository, and wallet mutations
// invalidate eagerly. A cold or down Redis only costs latency.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tolempay/billing/pkg/config"
	"github.com/tolempay/billing/pkg/domain"
)

// Balances caches per-user balance listings.
type Balances struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewBalances connects to Redis and returns the cache. An empty address
// returns nil; callers treat a nil *Balances as cache-off.
func NewBalances(cfg *config.Redis, logger *slog.Logger) *Balances {
	if cfg.Addr == "" {
		return nil
	}
	return &Balances{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl:    cfg.TTL,
		logger: logger.With("component", "balance-cache"),
	}
}

func key(userID uuid.UUID) string {
	return "wallet:balances:" + userID.String()
}

// Get returns the cached balances for a user, or (nil, false) on miss or any
// Redis error.
func (c *Balances) Get(ctx context.Context, userID uuid.UUID) ([]*domain.WalletBalance, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", "user_id", userID, "error", err)
		}
		return nil, false
	}
	var balances []*domain.WalletBalance
	if err := json.Unmarshal(raw, &balances); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", "user_id", userID, "error", err)
		c.Invalidate(ctx, userID)
		return nil, false
	}
	return balances, true
}

// Set stores the balances under the cache TTL. Failures are logged and
// swallowed.
func (c *Balances) Set(ctx context.Context, userID uuid.UUID, balances []*domain.WalletBalance) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(balances)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key(userID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "user_id", userID, "error", err)
	}
}

// Invalidate drops the user's entry after a balance mutation.
func (c *Balances) Invalidate(ctx context.Context, userID uuid.UUID) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, key(userID)).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", "user_id", userID, "error", err)
	}
}

// Close releases the Redis connection.
func (c *Balances) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
