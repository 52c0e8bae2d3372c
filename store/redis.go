package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/decorec/core"
)

// RedisStore 是 Redis 上的 core.Store，多实例部署时共享嵌入缓存。
// 所有 key 自动加上 prefix；client 由调用方持有，Close 不会关闭它，
// 这样同一个连接池可以同时交给 RedisHistory。
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 在 client 上创建缓存，prefix 为空时取 "decorec:cache:"。
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "decorec:cache:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) key(k string) string { return r.prefix + k }

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, core.ErrStoreNotFound
	case err != nil:
		return nil, unavailable("get", err)
	}
	return val, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	if err := r.client.Set(ctx, r.key(key), value, expiration(ttl)).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return unavailable("del", err)
	}
	return nil
}

func (r *RedisStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	vals, err := r.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, unavailable("mget", err)
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[keys[i]] = []byte(s)
		}
	}
	return out, nil
}

// BatchSet 用一个 pipeline 写入全部 key。
func (r *RedisStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	if len(kvs) == 0 {
		return nil
	}
	exp := expiration(ttl)
	_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range kvs {
			p.Set(ctx, r.key(k), v, exp)
		}
		return nil
	})
	if err != nil {
		return unavailable("pipelined set", err)
	}
	return nil
}

// Close 不关闭共享的 client。
func (r *RedisStore) Close() error { return nil }

func expiration(ttl []int) time.Duration {
	if len(ttl) == 0 || ttl[0] <= 0 {
		return 0
	}
	return time.Duration(ttl[0]) * time.Second
}

func unavailable(op string, err error) error {
	return core.Unavailable(core.ModuleStore, fmt.Sprintf("redis %s", op), err)
}

var _ core.Store = (*RedisStore)(nil)
