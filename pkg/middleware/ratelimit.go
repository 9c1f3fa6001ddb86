package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for the Redis-backed rate limiter.
type RateLimitConfig struct {
	// MaxRequests is the number of requests allowed per window.
	MaxRequests int

	// Window is the length of the counting window.
	Window time.Duration

	// KeyPrefix namespaces the counters in Redis.
	KeyPrefix string
}

// DefaultRateLimitConfig allows 60 requests per minute per client.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 60,
		Window:      time.Minute,
		KeyPrefix:   "ratelimit",
	}
}

// RateLimit returns middleware that enforces a per-client request budget
// using a Redis counter per window. Authenticated requests are keyed by user
// ID so the budget follows the account; anonymous requests fall back to the
// client IP. If Redis is unreachable the limiter fails open.
func RateLimit(rdb redis.Cmdable, cfg RateLimitConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ratelimit"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			subject := UserIDFromContext(ctx)
			if subject == "" {
				subject = clientIP(r)
			}

			window := time.Now().Unix() / int64(cfg.Window.Seconds())
			key := cfg.KeyPrefix + ":" + subject + ":" + strconv.FormatInt(window, 10)

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				logger.Warn("rate limiter unavailable, failing open",
					slog.String("subject", subject),
					slog.Any("error", err),
				)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(ctx, key, cfg.Window)
			}

			if count > int64(cfg.MaxRequests) {
				logger.Warn("rate limit exceeded",
					slog.String("subject", subject),
					slog.String("path", r.URL.Path),
					slog.Int64("count", count),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"code":    "RATE_LIMITED",
					"message": "too many requests",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP, preferring proxy headers over RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
