package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-farm-market/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// CachedStore keeps order details in Redis. Redis failures degrade to the
// underlying store; they never fail a request.
type CachedStore struct {
	Store
	Redis *redis.Client
	Log   *slog.Logger
}

func orderKey(id string) string { return fmt.Sprintf(redisx.KeyOrder, id) }

func (c *CachedStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	key := orderKey(id)
	if b, err := c.Redis.Get(ctx, key).Bytes(); err == nil {
		var o Order
		if err := json.Unmarshal(b, &o); err == nil {
			return &o, nil
		}
		c.Log.Warn("drop corrupt order cache entry", "order_id", id)
		_ = c.Redis.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		c.Log.Warn("order cache read failed", "order_id", id, "error", err)
	}

	o, err := c.Store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(o); err == nil {
		if err := c.Redis.Set(ctx, key, b, redisx.TTLOrderCache).Err(); err != nil {
			c.Log.Warn("order cache write failed", "order_id", id, "error", err)
		}
	}
	return o, nil
}

func (c *CachedStore) UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error {
	err := c.Store.UpdateStatus(ctx, id, from, to, at)
	// drop the entry on conflicts too: the cached status is stale either way
	if derr := c.Redis.Del(ctx, orderKey(id)).Err(); derr != nil {
		c.Log.Warn("order cache invalidate failed", "order_id", id, "error", derr)
	}
	return err
}
