package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Pinger is an interface for health check operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is an interface for graceful shutdown.
type Closer interface {
	Close() error
}

// CacheStore defines the interface for cache operations.
// Use this interface in application code for better testability.
type CacheStore[T any] interface {
	// Get retrieves a cached value by key.
	// Returns ErrCacheMiss if the key does not exist.
	Get(ctx context.Context, key string) (*T, error)

	// Set stores a value in the cache with the default TTL.
	Set(ctx context.Context, key string, value T) error

	// SetWithTTL stores a value in the cache with a custom TTL.
	SetWithTTL(ctx context.Context, key string, value T, ttl time.Duration) error

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)

	// GetOrSet retrieves from cache or calls loader and caches the result.
	GetOrSet(ctx context.Context, key string, loader func(ctx context.Context) (*T, error)) (*T, error)
}

// Ensure implementations satisfy interfaces.
var (
	_ Pinger = (*Client)(nil)
	_ Closer = (*Client)(nil)
)

// RedisClient is an interface that wraps the essential redis.Client methods.
// This allows for easier testing with mock implementations.
type RedisClient interface {
	Ping(ctx context.Context) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Exists(ctx context.Context, keys ...string) *goredis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *goredis.BoolCmd
	TTL(ctx context.Context, key string) *goredis.DurationCmd
	Close() error
}
