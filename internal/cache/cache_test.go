package cache

import (
	"context"
	"testing"
	"time"

	"kartcore/internal/config"
	"kartcore/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client, err := NewClient(ctx, config.RedisConfig{Addr: opts.Addr}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestIdempotencyStore(t *testing.T) {
	client := setupRedis(t)
	store := NewIdempotencyStore(client, time.Hour, zerolog.Nop())
	ctx := context.Background()

	number, claimed, err := store.Claim(ctx, "u1", "key-1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Empty(t, number)

	_, claimed, err = store.Claim(ctx, "u1", "key-1")
	assert.ErrorIs(t, err, model.ErrRequestInProgress)
	assert.False(t, claimed)

	// Keys are scoped per user.
	_, claimed, err = store.Claim(ctx, "u2", "key-1")
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, store.Complete(ctx, "u1", "key-1", "01HZY"))
	number, claimed, err = store.Claim(ctx, "u1", "key-1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "01HZY", number)

	ttl, err := client.TTL(ctx, "idem:order:place:u1:key-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, store.Abandon(ctx, "u2", "key-1"))
	_, claimed, err = store.Claim(ctx, "u2", "key-1")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestWebhookDeduper(t *testing.T) {
	client := setupRedis(t)
	d := NewWebhookDeduper(client, time.Hour, zerolog.Nop())
	ctx := context.Background()

	seen, err := d.Seen(ctx, "txn_1:success")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, d.Mark(ctx, "txn_1:success"))

	seen, err = d.Seen(ctx, "txn_1:success")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = d.Seen(ctx, "txn_1:failure")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestNewClient_Unreachable(t *testing.T) {
	_, err := NewClient(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping redis")
}

func TestNoopStores(t *testing.T) {
	ctx := context.Background()

	var store IdempotencyStore = NoopIdempotencyStore{}
	_, claimed, err := store.Claim(ctx, "u1", "k")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, store.Complete(ctx, "u1", "k", "n"))
	assert.NoError(t, store.Abandon(ctx, "u1", "k"))

	var d WebhookDeduper = NoopWebhookDeduper{}
	require.NoError(t, d.Mark(ctx, "k"))
	seen, err := d.Seen(ctx, "k")
	require.NoError(t, err)
	assert.False(t, seen)
}
