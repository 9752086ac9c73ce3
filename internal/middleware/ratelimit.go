package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when the limiter cannot reach Redis.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoRedis = errors.New("rate limit store unavailable")

// window is the outcome of one fixed-window count.
type window struct {
	count      int64
	retryAfter time.Duration
}

func limitingEnabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return false
	}
	return true
}

func rateLimitKey(resource, id string) string {
	return "rl:" + resource + ":" + id
}

// hit counts one request in the current window. INCR and TTL run in one round trip;
// a key left without expiry (first hit, or an earlier EXPIRE that never landed) gets one.
func hit(ctx context.Context, rdb *redis.Client, key string, span time.Duration) (window, error) {
	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return window{}, err
	}

	w := window{count: incr.Val(), retryAfter: ttl.Val()}
	if w.retryAfter < 0 {
		if err := rdb.Expire(ctx, key, span).Err(); err != nil {
			return window{}, err
		}
		w.retryAfter = span
	}
	return w, nil
}

// RateLimit allows limit requests per span for each caller, keyed by the authenticated
// user when there is one and by client IP otherwise. name overrides the route path as
// the bucket name.
func RateLimit(rdb *redis.Client, limit int, span time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, span, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, span time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !limitingEnabled() {
			return c.Next()
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}
		id := "ip:" + c.IP()
		if uid := c.Locals("userID"); uid != nil {
			id = fmt.Sprintf("user:%v", uid)
		}

		var (
			w   window
			err = errNoRedis
		)
		if rdb != nil {
			w, err = hit(c.UserContext(), rdb, rateLimitKey(resource, id), span)
		}
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limiter unavailable, rejecting request",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
				Error: "Rate limiting is temporarily unavailable",
			})
		}

		if w.count > int64(limit) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(w.retryAfter.Seconds()))))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please slow down",
			})
		}
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(int64(limit)-w.count, 10))
		return c.Next()
	}
}
