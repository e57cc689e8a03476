// Package cache memoizes computed values keyed by their input parameters.
// Entries never expire; a change in any parameter produces a new key.
package cache

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/rateboard/internal/config"
	"go.uber.org/zap"
)

type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V)
	Delete(ctx context.Context, key string)
}

// New picks the backend from config: redis when a client is configured,
// otherwise process memory.
func New[V any](cfg config.Config, client *redis.Client, namespace string, log *zap.Logger) Cache[V] {
	return NewWithLimit[V](cfg, client, namespace, defaultMaxEntries, log)
}

// NewWithLimit is New with an explicit entry cap for the memory backend.
func NewWithLimit[V any](cfg config.Config, client *redis.Client, namespace string, maxEntries int, log *zap.Logger) Cache[V] {
	if cfg.Cache.Driver == config.CacheDriverRedis && client != nil {
		return NewRedisCache[V](client, Key(cfg.Cache.KeyPrefix, namespace), log)
	}
	return NewMemoryCache[V](maxEntries)
}

// Key joins normalized parts with "|".
func Key(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(part)))
	}
	return strings.Join(normalized, "|")
}
