package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wisdom-core/internal/domain/entity"
)

// RedisUsage keeps monthly voice usage counters.
type RedisUsage struct {
	client *redis.Client
	ttl    time.Duration // counters outlive their month so late reads still work
}

func NewRedisUsage(client *redis.Client) *RedisUsage {
	return &RedisUsage{client: client, ttl: 40 * 24 * time.Hour}
}

func usageKey(userID, period string) string {
	return "usage:voice:" + userID + ":" + period
}

// consumeScript adds ARGV[1] units only when the result stays within
// ARGV[2]. It returns {granted, counter}.
var consumeScript = redis.NewScript(`
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
local units = tonumber(ARGV[1])
if n + units > tonumber(ARGV[2]) then
	return {0, n}
end
n = redis.call('INCRBY', KEYS[1], units)
if n == units then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return {1, n}
`)

// Consume checks and increments in one server-side step, so the counter is
// never above the limit, even for a moment.
func (r *RedisUsage) Consume(ctx context.Context, userID, period string, units, limit int64) (int64, error) {
	res, err := consumeScript.Run(ctx, r.client, []string{usageKey(userID, period)}, units, limit, r.ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, err
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("usage script returned %d values", len(res))
	}
	if res[0] == 0 {
		return res[1], entity.ErrQuotaExceeded
	}
	return res[1], nil
}

func (r *RedisUsage) Usage(ctx context.Context, userID, period string) (int64, error) {
	n, err := r.client.Get(ctx, usageKey(userID, period)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
