package analytics

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ares-dev-tech/dashboard/internal/config"
)

// OpenCache connects to redis when an address is configured and returns
// the in-process cache otherwise. closeFn releases the redis client.
func OpenCache(ctx context.Context, cfg config.CacheConfig) (cache Cache, closeFn func() error, err error) {
	if cfg.RedisAddr == "" {
		return NewMemoryCache(cfg.MemorySize), func() error { return nil }, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	return NewRedisCache(rdb), rdb.Close, nil
}
