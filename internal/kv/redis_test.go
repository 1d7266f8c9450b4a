package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, ttl), mr
}

func TestRedisGetSetDelete(t *testing.T) {
	store, mr := setupRedis(t, 0)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "cart:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "cart:abc", `[{"id":"p1"}]`))
	val, ok, err := store.Get(ctx, "cart:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"p1"}]`, val)
	assert.True(t, mr.Exists("cart:abc"))

	require.NoError(t, store.Delete(ctx, "cart:abc"))
	assert.False(t, mr.Exists("cart:abc"))
}

func TestRedisSetAppliesTTL(t *testing.T) {
	store, mr := setupRedis(t, time.Hour)
	require.NoError(t, store.Set(context.Background(), "cart:ttl", "[]"))
	assert.Equal(t, time.Hour, mr.TTL("cart:ttl"))

	mr.FastForward(2 * time.Hour)
	_, ok, err := store.Get(context.Background(), "cart:ttl")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisGetReportsConnectionErrors(t *testing.T) {
	store, mr := setupRedis(t, 0)
	mr.Close()

	_, _, err := store.Get(context.Background(), "cart:any")
	assert.Error(t, err)
}

func TestRedisPublishSubscribe(t *testing.T) {
	store, _ := setupRedis(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := store.Subscribe(ctx, "cart-events")
	require.NoError(t, err)

	require.NoError(t, store.Publish(ctx, "cart-events", "hello"))

	select {
	case msg := <-messages:
		assert.Equal(t, "hello", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}

	cancel()
	select {
	case _, ok := <-messages:
		for ok {
			_, ok = <-messages
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected subscription channel to close after cancel")
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v"))
	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", val)

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)
}
