package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/decorec/core"
)

func redisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisHistory_Cap(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	h := NewRedisHistory(client, "decorec:test:history:", 3)
	require.NoError(t, h.DeleteUserHistory(ctx, "u1"))
	t.Cleanup(func() { _ = h.DeleteUserHistory(ctx, "u1") })

	base := time.Now().Add(-time.Hour)
	for i, pid := range []string{"p1", "p2", "p3", "p4"} {
		_, err := h.AppendHistory(ctx, core.HistoryEntry{UserID: "u1", ProductID: pid,
			Action: core.ActionLike, Timestamp: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}
	hist, err := h.GetUserHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, "p4", hist[0].ProductID)
	assert.Equal(t, "p2", hist[2].ProductID)

	require.NoError(t, h.RemoveProduct(ctx, "p3"))
	hist, err = h.GetUserHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestRedisStore_GetSet(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	s := NewRedisStore(client, "decorec:test:cache:")

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 60))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	raw, err := client.Get(ctx, "decorec:test:cache:k").Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), raw)

	require.NoError(t, s.BatchSet(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, 60))
	got, err := s.BatchGet(ctx, []string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, got)

	for _, k := range []string{"k", "a", "b"} {
		require.NoError(t, s.Delete(ctx, k))
	}
	_, err = s.Get(ctx, "k")
	assert.True(t, core.IsStoreNotFound(err))
	require.NoError(t, s.Close())
	require.NoError(t, client.Ping(ctx).Err())
}

func TestDecodeHistory_CountsUndecodable(t *testing.T) {
	ok := `{"id":"h1","user_id":"u1","product_id":"p1","action":"like"}`
	entries, dropped := decodeHistory([]string{ok, "{not json", ok})
	assert.Equal(t, 1, dropped)
	require.Len(t, entries, 2)
	assert.Equal(t, "p1", entries[0].ProductID)
}
