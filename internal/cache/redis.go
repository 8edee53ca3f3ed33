package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"clima/internal/models"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "clima:reading:"

type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis { return &Redis{rdb: rdb, ttl: ttl} }

func (c *Redis) Get(ctx context.Context, key string) (models.Reading, bool) {
	b, err := c.rdb.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Reading{}, false
	}
	if err != nil {
		slog.Warn("redis cache get failed", "key", key, "error", err)
		return models.Reading{}, false
	}
	var r models.Reading
	if err := json.Unmarshal(b, &r); err != nil {
		slog.Warn("redis cache entry corrupt", "key", key, "error", err)
		return models.Reading{}, false
	}
	return r, true
}

func (c *Redis) Set(ctx context.Context, key string, r models.Reading) {
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, redisPrefix+key, b, c.ttl).Err(); err != nil {
		slog.Warn("redis cache set failed", "key", key, "error", err)
	}
}
