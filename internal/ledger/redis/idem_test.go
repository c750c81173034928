package redis_test

import (
	"context"
	"testing"
	"time"

	ledgerredis "ms-ordering/internal/ledger/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

func setupGuard(t *testing.T) (*ledgerredis.Guard, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return ledgerredis.NewGuard(client, 5*time.Minute), mr
}

func TestReserveClaimsKeyOnce(t *testing.T) {
	guard, _ := setupGuard(t)
	ctx := context.Background()

	ok, err := guard.Reserve(ctx, "key-1")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Reserve(ctx, "key-1")
	assert.NoError(t, err)
	assert.False(t, ok, "a replayed key must be rejected")

	// An unrelated key is unaffected.
	ok, err = guard.Reserve(ctx, "key-2")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseFreesKey(t *testing.T) {
	guard, _ := setupGuard(t)
	ctx := context.Background()

	ok, err := guard.Reserve(ctx, "key-1")
	assert.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, guard.Release(ctx, "key-1"))

	ok, err = guard.Reserve(ctx, "key-1")
	assert.NoError(t, err)
	assert.True(t, ok, "a released key may be reserved again")
}

func TestReserveSetsTTL(t *testing.T) {
	guard, mr := setupGuard(t)
	ctx := context.Background()

	ok, err := guard.Reserve(ctx, "key-1")
	assert.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 5*time.Minute, mr.TTL("order_submit:key-1"))

	// Once the TTL elapses the key is reclaimable.
	mr.FastForward(5 * time.Minute)
	ok, err = guard.Reserve(ctx, "key-1")
	assert.NoError(t, err)
	assert.True(t, ok)
}
