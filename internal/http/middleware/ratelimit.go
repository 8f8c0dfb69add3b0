package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

// fixedWindowScript increments the window counter and arms its expiry on first use.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RateLimiter is a fixed-window per-client limiter backed by Redis, shared
// across API instances.
type RateLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
	logger *logging.Logger
}

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	Limit  int
	Window time.Duration
	Prefix string
	Logger *logging.Logger
}

// NewRateLimiter creates a limiter allowing cfg.Limit requests per window per client.
func NewRateLimiter(rdb redis.Scripter, cfg RateLimiterConfig) *RateLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 120
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if strings.TrimSpace(cfg.Prefix) == "" {
		cfg.Prefix = "ratelimit"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &RateLimiter{rdb: rdb, limit: cfg.Limit, window: cfg.Window, prefix: cfg.Prefix, logger: cfg.Logger}
}

// Allow counts one request for client and reports whether it is within the limit.
func (rl *RateLimiter) Allow(ctx context.Context, client string) (bool, error) {
	if rl == nil || rl.rdb == nil {
		return true, nil
	}
	bucket := time.Now().UnixMilli() / rl.window.Milliseconds()
	key := fmt.Sprintf("%s:%s:%d", rl.prefix, client, bucket)

	res, err := fixedWindowScript.Run(ctx, rl.rdb, []string{key}, rl.window.Milliseconds()).Result()
	if err != nil {
		return true, fmt.Errorf("ratelimit: incr: %w", err)
	}
	var count int64
	switch v := res.(type) {
	case int64:
		count = v
	case string:
		count, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return true, fmt.Errorf("ratelimit: parse count: %w", err)
		}
	default:
		return true, fmt.Errorf("ratelimit: unexpected script result %T", res)
	}
	return count <= int64(rl.limit), nil
}

// Middleware rejects requests over the limit with 429. Redis errors let the
// request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := rl.Allow(r.Context(), clientIP(r))
		if err != nil {
			rl.logger.Warn("rate limiter unavailable, allowing request", "path", r.URL.Path, "error", err)
		}
		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success":false,"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers X-Real-Ip set by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	if xri := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
