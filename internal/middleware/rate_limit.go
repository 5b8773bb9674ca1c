package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter implements a token bucket rate limiter backed by Redis,
// keyed by client IP rather than by authenticated user: the endpoint
// it guards (room creation) is reachable before any session exists.
type RateLimiter struct {
	redisClient *redis.Client
	capacity    int64
	rate        float64
}

// NewRateLimiter creates a RateLimiter with the given burst capacity and
// steady-state refill rate (tokens per second).
func NewRateLimiter(redisClient *redis.Client, capacity int64, ratePerSecond float64) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		capacity:    capacity,
		rate:        ratePerSecond,
	}
}

// Middleware applies rate limiting to HTTP requests, keyed by the
// `x-forwarded-for` header, falling back to `x-real-ip`, then `"unknown"`.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		key := clientKey(req)

		if !rl.Allow(req.Context(), key) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, req)
	})
}

func clientKey(req *http.Request) string {
	if fwd := req.Header.Get("x-forwarded-for"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if real := req.Header.Get("x-real-ip"); real != "" {
		return real
	}
	return "unknown"
}

// Allow checks and consumes a token for the given key.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	redisKey := fmt.Sprintf("rate_limit:room_create:%s", key)

	val, err := rl.redisClient.HMGet(ctx, redisKey, "tokens", "last_refill").Result()
	if err != nil {
		fmt.Printf("Error getting rate limit info from Redis: %v\n", err)
		return true
	}

	currentTokens := rl.capacity
	lastRefillTime := time.Now()

	if val[0] != nil && val[1] != nil {
		if t, err := strconv.ParseFloat(val[0].(string), 64); err == nil {
			currentTokens = int64(t)
		}
		if t, err := time.Parse(time.RFC3339Nano, val[1].(string)); err == nil {
			lastRefillTime = t
		}
	}

	now := time.Now()
	diff := now.Sub(lastRefillTime).Seconds()
	tokensToAdd := int64(diff * rl.rate)
	currentTokens = int64(math.Min(float64(rl.capacity), float64(currentTokens+tokensToAdd)))
	lastRefillTime = now

	if currentTokens >= 1 {
		currentTokens--
		_, err = rl.redisClient.HMSet(ctx, redisKey, "tokens", currentTokens, "last_refill", lastRefillTime.Format(time.RFC3339Nano)).Result()
		if err != nil {
			fmt.Printf("Error setting rate limit info to Redis: %v\n", err)
			return true
		}
		rl.redisClient.Expire(ctx, redisKey, time.Minute)
		return true
	}

	return false
}
