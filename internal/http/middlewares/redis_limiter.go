package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a fixed-window counter in redis (INCR + EXPIRE), so
// the limit holds across API replicas. On redis errors it fails open: a
// degraded limiter should not take logins down with it.
type RedisRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisRateLimiter(rdb *redis.Client, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}

	return &RedisRateLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: prefix,
	}
}

func (rl *RedisRateLimiter) Allow(c *gin.Context, key string) (bool, time.Duration) {
	ctx := c.Request.Context()

	redisKey := rl.prefix + ":" + key

	count, err := rl.rdb.Incr(ctx, redisKey).Result()

	if err != nil {
		return true, 0
	}

	if count == 1 {
		// first hit in this window starts the clock
		_ = rl.rdb.Expire(ctx, redisKey, rl.window).Err()
	}

	if count > int64(rl.limit) {
		ttl, err := rl.rdb.TTL(ctx, redisKey).Result()

		if err != nil || ttl < 0 {
			ttl = rl.window
		}

		return false, ttl
	}

	return true, 0
}
