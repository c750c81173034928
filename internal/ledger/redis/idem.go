package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "order_submit:"
const defaultTTL = 10 * time.Minute

// Guard stores client-generated idempotency keys with SETNX so a
// retried submission is recognized as a duplicate while the key lives.
type Guard struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewGuard(client *redis.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Guard{Client: client, TTL: ttl}
}

// Reserve claims a key. A false return means the key was already
// claimed by an earlier submission.
func (g *Guard) Reserve(ctx context.Context, key string) (bool, error) {
	return g.Client.SetNX(ctx, keyPrefix+key, "1", g.TTL).Result()
}

// Release frees a key after the guarded append failed, so the client
// may retry with the same key.
func (g *Guard) Release(ctx context.Context, key string) error {
	return g.Client.Del(ctx, keyPrefix+key).Err()
}
