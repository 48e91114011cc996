package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"wisdom-core/internal/domain/entity"
)

// RedisCache is the hot answer cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(req entity.WisdomRequest) string {
	return "wisdom:" + req.CacheKey() + ":" + req.QuestionDigest()
}

func (c *RedisCache) Get(ctx context.Context, req entity.WisdomRequest) (string, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(req)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, req entity.WisdomRequest, answer string) error {
	return c.client.Set(ctx, cacheKey(req), answer, c.ttl).Err()
}
