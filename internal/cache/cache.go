// Package cache provides the Redis connection used for rate limiting.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// Cache wraps a Redis client with connection-time tracing.
type Cache struct {
	client *redis.Client
}

// New parses dsn, connects to Redis and pings it to verify connectivity.
func New(dsn string, password string, db int) (*Cache, error) {
	opt, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if password != "" {
		opt.Password = password
	}
	if db != 0 {
		opt.DB = db
	}

	client := redis.NewClient(opt)

	ctx, span := otel.Tracer("redis-client").Start(context.Background(), "redis.ping")
	defer span.End()
	if err := client.Ping(ctx).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to ping Redis")
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	span.SetStatus(codes.Ok, "Redis connected successfully")

	return &Cache{client: client}, nil
}

// GetClient returns the underlying Redis client for use by the rate limiter.
func (c *Cache) GetClient() *redis.Client {
	return c.client
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
