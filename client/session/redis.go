package session

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKV backs the session store with Redis so multiple storefront
// processes observe the same sessions. No TTL is set; credential expiry is
// server-validated, and stale pairs are purged by Init.
type RedisKV struct {
	rdb *redis.Client
}

// NewRedisKV wraps an existing Redis client.
func NewRedisKV(rdb *redis.Client) *RedisKV {
	return &RedisKV{rdb: rdb}
}

// Get returns the stored value or ErrKeyNotFound.
func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Set stores a value.
func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, key, value, 0).Err()
}

// Del removes keys; missing keys are not an error.
func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	return r.rdb.Del(ctx, keys...).Err()
}
