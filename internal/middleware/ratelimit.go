package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	KeyPrefix         string
}

// RateLimiter is a fixed-window request counter kept in Redis
type RateLimiter struct {
	client *redis.Client
	config RateLimitConfig
}

func NewRateLimiter(client *redis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: client, config: config}
}

// Hit counts one request for key and returns the count in the current window
// and the time until the window resets
func (l *RateLimiter) Hit(ctx context.Context, key string) (int64, time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", l.config.KeyPrefix, key)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, l.config.Window)
		ttl = pipe.TTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	reset := ttl.Val()
	if reset <= 0 {
		reset = l.config.Window
	}
	return incr.Val(), reset, nil
}

// RateLimitMiddleware rejects callers over their window allowance with 429.
// When Redis is unreachable requests are let through.
func RateLimitMiddleware(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(redisClient, config)
	limit := strconv.Itoa(config.RequestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientKey(r)

			count, reset, err := limiter.Hit(r.Context(), clientID)
			if err != nil {
				logger.Error("Rate limit check failed", zap.Error(err), zap.String("client_id", clientID))
				next.ServeHTTP(w, r)
				return
			}

			remaining := config.RequestsPerWindow - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

			if count > int64(config.RequestsPerWindow) {
				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.Int64("count", count),
					zap.Int("limit", config.RequestsPerWindow),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(reset.Round(time.Second).Seconds())))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller by user ID when authenticated, by IP otherwise
func clientKey(r *http.Request) string {
	if userID, ok := GetUserID(r.Context()); ok {
		return "user:" + userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
