package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisKey = "aihub:models"
	// DefaultRedisTTL expires a snapshot nobody refreshes
	DefaultRedisTTL = 24 * time.Hour

	redisPingTimeout = 5 * time.Second
)

type RedisConfig struct {
	// URL such as "redis://:password@host:6379/0"
	URL string
	Key string
	TTL time.Duration
}

// RedisCache stores the snapshot under one string key, so every instance
// behind a load balancer shares one catalog.
type RedisCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	c := &RedisCache{rdb: redis.NewClient(opts), key: cfg.Key, ttl: cfg.TTL}
	if c.key == "" {
		c.key = DefaultRedisKey
	}
	if c.ttl == 0 {
		c.ttl = DefaultRedisTTL
	}

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := c.rdb.Ping(pingCtx).Err(); err != nil {
		_ = c.rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	slog.Info("redis cache connected", "key", c.key, "ttl", c.ttl)
	return c, nil
}

func (c *RedisCache) Get(ctx context.Context) (*ModelSnapshot, error) {
	data, err := c.rdb.Get(ctx, c.key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", c.key, err)
	}
	return decodeSnapshot(data, "redis key "+c.key)
}

func (c *RedisCache) Set(ctx context.Context, snapshot *ModelSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}

func (c *RedisCache) Close() error { return c.rdb.Close() }
