package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns a fixed-window per-client limiter backed by Redis.
// The window key combines the client identity (authenticated user id,
// falling back to the remote IP) with the current window number, so the
// counter state is shared across instances. When rdb is nil the
// middleware is a no-op and the service runs unlimited.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	if rdb == nil || limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			who := c.RealIP()
			if uid := UserID(c); uid != 0 {
				who = "u:" + strconv.FormatUint(uid, 10)
			}
			bucket := time.Now().Unix() / int64(window.Seconds())
			key := fmt.Sprintf("rl:%s:%d", who, bucket)

			ctx := c.Request().Context()
			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				// Redis being down never blocks traffic.
				return next(c)
			}
			if n == 1 {
				rdb.Expire(ctx, key, window)
			}
			if n > int64(limit) {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
