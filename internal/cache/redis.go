package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache stores snappy-compressed JSON without expiry. Redis failures
// degrade to cache misses.
type RedisCache[V any] struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedisCache[V any](client *redis.Client, prefix string, log *zap.Logger) *RedisCache[V] {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisCache[V]{
		client: client,
		prefix: prefix,
		log:    log.Named("cache.redis"),
	}
}

func (c *RedisCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return zero, false
	}

	decoded, err := snappy.Decode(nil, raw)
	if err != nil {
		c.log.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	var value V
	if err := json.Unmarshal(decoded, &value); err != nil {
		c.log.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	return value, true
}

func (c *RedisCache[V]) Set(ctx context.Context, key string, value V) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(key), snappy.Encode(nil, payload), 0).Err(); err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisCache[V]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.log.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisCache[V]) key(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + "|" + key
}
