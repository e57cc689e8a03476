package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/rateboard/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("redis",
	fx.Provide(NewClient),
)

// NewClient connects only when the redis cache driver is selected; with the
// memory driver it returns a nil client.
func NewClient(lc fx.Lifecycle, cfg config.Config) (*redis.Client, error) {
	if cfg.Cache.Driver != config.CacheDriverRedis {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Cache.RedisAddr, err)
	}

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return client.Close() },
		})
	}
	return client, nil
}
