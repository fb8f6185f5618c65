package providers

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider defines the interface for caching operations
type CacheProvider interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)

	// Incr atomically increments a counter, setting its expiry when it is created
	Incr(ctx context.Context, key string, expirationSeconds int) (int64, error)

	// SetNX stores a value only if the key does not exist and reports whether it was stored
	SetNX(ctx context.Context, key string, value []byte, expirationSeconds int) (bool, error)
}
