package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wingufactory/moodboard/backend/internal/domain/providers"
	redisclient "github.com/wingufactory/moodboard/backend/internal/infrastructure/clients/redis"
)

// RedisAdapter implements the CacheProvider interface using Redis
type RedisAdapter struct {
	client *redisclient.Client
}

// NewRedisAdapter creates a new Redis cache adapter
func NewRedisAdapter(client *redisclient.Client) providers.CacheProvider {
	return &RedisAdapter{
		client: client,
	}
}

// Get retrieves a value from cache
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := a.client.Client().Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", providers.ErrCacheMiss, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}
	return result, nil
}

// Set stores a value in cache with expiration
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	if err := a.client.Client().Set(ctx, key, value, seconds(expirationSeconds)).Err(); err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

// Delete removes a value from cache
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Client().Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// Exists checks if a key exists in cache
func (a *RedisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	result, err := a.client.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence in cache: %w", err)
	}
	return result > 0, nil
}

// Incr increments key and starts its expiry window on the first hit
func (a *RedisAdapter) Incr(ctx context.Context, key string, expirationSeconds int) (int64, error) {
	var incr *redis.IntCmd
	_, err := a.client.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, seconds(expirationSeconds))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return incr.Val(), nil
}

// SetNX stores value only when key is absent
func (a *RedisAdapter) SetNX(ctx context.Context, key string, value []byte, expirationSeconds int) (bool, error) {
	stored, err := a.client.Client().SetNX(ctx, key, value, seconds(expirationSeconds)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set in cache: %w", err)
	}
	return stored, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
