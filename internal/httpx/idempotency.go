package httpx

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-farm-market/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// Idempotency maps a consumer's Idempotency-Key to the order it created.
type Idempotency interface {
	Lookup(ctx context.Context, consumerID, key string) (orderID string, ok bool, err error)
	Remember(ctx context.Context, consumerID, key, orderID string) error
}

type RedisIdempotency struct{ Redis *redis.Client }

func idemKey(consumerID, key string) string {
	return fmt.Sprintf(redisx.KeyIdemOrderCreate, consumerID, key)
}

func (i *RedisIdempotency) Lookup(ctx context.Context, consumerID, key string) (string, bool, error) {
	id, err := i.Redis.Get(ctx, idemKey(consumerID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Remember keeps the first order recorded for the key.
func (i *RedisIdempotency) Remember(ctx context.Context, consumerID, key, orderID string) error {
	_, err := redisx.MarkValue(ctx, i.Redis, idemKey(consumerID, key), orderID, redisx.TTLIdempotency)
	return err
}
