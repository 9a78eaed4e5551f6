package providers

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider defines the interface for caching operations
type CacheProvider interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// SetIfAbsent stores a value only when the key does not exist and
	// reports whether it was stored
	SetIfAbsent(ctx context.Context, key string, value []byte, expirationSeconds int) (bool, error)

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Increment atomically adds one to a counter. The window starts with the
	// first increment and the counter expires when it ends.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}
