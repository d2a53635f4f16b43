package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/response"
)

// Counter is the subset of the Redis client used for fixed-window limiting.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimiter is a per-IP fixed-window limiter backed by Redis, so every
// API replica shares the same counters.
type RateLimiter struct {
	rdb      Counter
	rate     int           // Requests per window
	interval time.Duration // Window length
	now      func() time.Time
	log      zerolog.Logger
}

// NewRateLimiter creates a RateLimiter (e.g., 30 requests per minute).
func NewRateLimiter(rdb Counter, rate int, interval time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:      rdb,
		rate:     rate,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "rate_limiter").Logger(),
	}
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
// Redis errors let the request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		now := rl.now()
		window := now.UnixNano() / int64(rl.interval)
		key := config.CacheKey.AuthRateLimitKey(c.ClientIP(), window)

		n, err := rl.rdb.Incr(ctx, key).Result()
		if err != nil {
			rl.log.Warn().Err(err).Msg("Rate limit counter unavailable")
			c.Next()
			return
		}
		if n == 1 {
			if err := rl.rdb.Expire(ctx, key, rl.interval).Err(); err != nil {
				rl.log.Warn().Err(err).Str("key", key).Msg("Failed to set rate limit expiry")
			}
		}

		remaining := rl.rate - int(n)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.rate))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(n) > rl.rate {
			reset := time.Unix(0, (window+1)*int64(rl.interval)).Sub(now)
			c.Header("Retry-After", strconv.Itoa(int(reset.Seconds())+1))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
