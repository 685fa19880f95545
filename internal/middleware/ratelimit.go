package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a fixed-window limiter shared across instances. Used on
// the auth routes, where credential stuffing is the concern.
type RedisRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
	logger *slog.Logger
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func NewRedisRateLimiter(
	rdb *redis.Client,
	limit int,
	window time.Duration,
	prefix string,
	logger *slog.Logger,
) *RedisRateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix, logger: logger}
}

// Handler fails open when Redis is unreachable.
func (rl *RedisRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rl.prefix + ":" + c.IP()
		count, err := rl.incr(c.Context(), key)
		if err != nil {
			rl.logger.Warn("rate limiter unavailable", "error", err)
			return c.Next()
		}
		if count > int64(rl.limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
			})
		}
		return c.Next()
	}
}

func (rl *RedisRateLimiter) incr(ctx context.Context, key string) (int64, error) {
	res, err := fixedWindowScript.Run(ctx, rl.rdb, []string{key}, rl.window.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", res)
	}
}
