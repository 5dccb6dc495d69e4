package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitConfig holds parameters for a Redis-backed fixed window limiter.
type RateLimitConfig struct {
	// KeyPrefix namespaces the Redis counters, e.g. "rate_limit:auth".
	KeyPrefix string
	// Limit is the number of requests allowed per window.
	Limit int
	// Window is the length of the fixed window.
	Window time.Duration
}

// RateLimit returns middleware that enforces a per-IP fixed window limit
// backed by Redis, so the limit holds across multiple instances. The counter
// key is INCRed on each request and expired at the window boundary.
// Returns HTTP 429 Too Many Requests when the limit is exceeded. Redis
// failures fail open: the request is allowed and the error is logged.
func RateLimit(client *redis.Client, cfg RateLimitConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			key := fmt.Sprintf("%s:%s", cfg.KeyPrefix, ip)

			count, err := client.Incr(r.Context(), key).Result()
			if err != nil {
				logger.ErrorContext(r.Context(), "rate limit counter unavailable",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := client.Expire(r.Context(), key, cfg.Window).Err(); err != nil {
					logger.ErrorContext(r.Context(), "rate limit expire failed",
						slog.String("error", err.Error()),
					)
				}
			}

			if count > int64(cfg.Limit) {
				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
					slog.Int64("count", count),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(cfg.Window.Seconds())))
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

// ClientIP extracts the client IP address from the request.
// It checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func ClientIP(r *http.Request) string {
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
