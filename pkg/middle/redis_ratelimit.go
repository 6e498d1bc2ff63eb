package middle

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter shares a fixed one second window between API instances.
type RedisLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "vogdb:ratelimit"
	}
	return &RedisLimiter{
		redis:  client,
		limit:  limit,
		window: time.Second,
		prefix: prefix,
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true, Limit: rl.limit}, fmt.Errorf("redis error: %w", err)
	}
	// the first hit of a window starts its expiry
	if ttl.Val() <= 0 {
		if err := rl.redis.PExpire(ctx, redisKey, rl.window).Err(); err != nil {
			return Decision{Allowed: true, Limit: rl.limit}, fmt.Errorf("redis error: %w", err)
		}
	}

	count := int(incr.Val())
	d := Decision{Limit: rl.limit, Remaining: max(0, rl.limit-count)}
	if count <= rl.limit {
		d.Allowed = true
		return d, nil
	}
	d.RetryAfter = rl.window
	if t := ttl.Val(); t > 0 {
		d.RetryAfter = t
	}
	return d, nil
}

// Reset clears the window of key.
func (rl *RedisLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}
