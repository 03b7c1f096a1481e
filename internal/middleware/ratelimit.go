package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/leikapui/sales-dashboard/internal/config"
)

// bucketScript refills KEYS[1] by ARGV[3] tokens for every whole ARGV[4]
// milliseconds since its last refill, capped at ARGV[2], then takes one.
// It replies {taken, left, wait_ms}.
var bucketScript = redis.NewScript(`
local now, cap, step, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local left = tonumber(redis.call('HGET', KEYS[1], 'left') or cap)
local since = tonumber(redis.call('HGET', KEYS[1], 'since') or now)
local n = math.floor(math.max(0, now - since) / every)
if n > 0 then
	left = math.min(cap, left + n * step)
	since = since + n * every
end
local taken, wait = 0, 0
if left > 0 then
	taken, left = 1, left - 1
else
	wait = math.max(0, every - (now - since))
end
redis.call('HSET', KEYS[1], 'left', left, 'since', since)
redis.call('EXPIRE', KEYS[1], ttl)
return {taken, left, wait}
`)

// Login attempts carry no signed-in user, so buckets are keyed by client
// address, route or the submitted email.
var rateKeyParts = map[string]func(c echo.Context) []string{
	"ip":       func(c echo.Context) []string { return []string{"ip", clientIP(c)} },
	"route":    func(c echo.Context) []string { return []string{"route", routeOf(c)} },
	"ip_route": func(c echo.Context) []string { return []string{"ip", clientIP(c), "route", routeOf(c)} },
	"email":    func(c echo.Context) []string { return []string{"email", loginEmail(c)} },
	"ip_email": func(c echo.Context) []string { return []string{"ip", clientIP(c), "email", loginEmail(c)} },
}

const defaultKeyStrategy = "ip_route"

// NewTokenBucket limits requests with a Redis token bucket keyed by
// cfg.KeyStrategy (one of ip, route, ip_route, email, ip_email). Other
// strategies are logged and replaced by ip_route. It is a pass-through when
// disabled or without Redis, and fails open when Redis errors.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *zap.SugaredLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	strategy := strings.ToLower(strings.TrimSpace(cfg.KeyStrategy))
	keyParts, ok := rateKeyParts[strategy]
	if !ok {
		logger.Warnw("unsupported rate limit key strategy", "strategy", cfg.KeyStrategy, "using", defaultKeyStrategy)
		keyParts = rateKeyParts[defaultKeyStrategy]
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.Join(append([]string{cfg.Prefix}, keyParts(c)...), ":")
			args := []any{
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL / time.Second),
			}

			taken, left, wait, err := takeToken(c.Request().Context(), rdb, key, args)
			if err != nil {
				logger.Warnw("rate limiter unavailable, letting request through", "key", key, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(left, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if taken {
				return next(c)
			}

			secs := int((wait + 999) / 1000)
			h.Set("Retry-After", strconv.Itoa(secs))
			logger.Infow("login rate limited", "key", key, "retry_after", secs)
			if WantsJSON(c) {
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too_many_requests", "retry_after": secs})
			}
			return c.String(http.StatusTooManyRequests, fmt.Sprintf("Too many attempts. Try again in %d seconds.", secs))
		}
	}
}

func takeToken(ctx context.Context, rdb *redis.Client, key string, args []any) (taken bool, left, waitMs int64, err error) {
	reply, err := bucketScript.Run(ctx, rdb, []string{key}, args...).Int64Slice()
	if err != nil {
		return false, 0, 0, err
	}
	if len(reply) != 3 {
		return false, 0, 0, fmt.Errorf("token bucket replied %v", reply)
	}
	return reply[0] == 1, reply[1], max(reply[2], 0), nil
}

func clientIP(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func routeOf(c echo.Context) string { return c.Request().Method + " " + c.Path() }

// loginEmail reads the submitted email. The parsed form stays on the
// request for the handler's Bind.
func loginEmail(c echo.Context) string {
	if email := strings.ToLower(strings.TrimSpace(c.FormValue("email"))); email != "" {
		return email
	}
	return "none"
}
