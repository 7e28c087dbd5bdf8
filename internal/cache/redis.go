package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/config"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/interfaces"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

// versionTTL bounds how long an idle key's invalidation counter is kept. It
// only has to outlive a single ledger read.
const versionTTL = 24 * time.Hour

var errVersionMoved = errors.New("cache version moved")

// RedisCache stores appointment lists as JSON values with a native TTL.
// Every key has a version counter that Invalidate advances; fills are
// conditional on it so replicas sharing the cache never store a stale list.
type RedisCache struct {
	client *redis.Client
	prefix string
}

var _ interfaces.AppointmentCache = (*RedisCache)(nil)

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, cfg config.RedisConfig, prefix string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Network:  "tcp",
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	c := NewRedisCacheFromClient(client, prefix)
	if err := c.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr(), err)
	}
	return c, nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Get returns the cached list for key; a missing key is a miss, not an error
func (c *RedisCache) Get(ctx context.Context, key string) ([]*types.Appointment, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	var apts []*types.Appointment
	if err := json.Unmarshal(data, &apts); err != nil {
		// A corrupt entry is dropped and treated as a miss.
		_ = c.client.Del(ctx, c.key(key)).Err()
		return nil, false, nil
	}
	return apts, true, nil
}

func (c *RedisCache) versionKey(key string) string {
	return c.prefix + "version:" + key
}

// Set stores apts under key for ttl
func (c *RedisCache) Set(ctx context.Context, key string, apts []*types.Appointment, ttl time.Duration) error {
	data, err := json.Marshal(apts)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Version returns the invalidation counter of key; a missing counter is 0
func (c *RedisCache) Version(ctx context.Context, key string) (int64, error) {
	version, err := c.client.Get(ctx, c.versionKey(key)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("failed to read cache version: %w", err)
	}
	return version, nil
}

// SetIfVersion stores apts under key inside a WATCH on the version counter,
// so an Invalidate from any client between Version and the write aborts it
func (c *RedisCache) SetIfVersion(ctx context.Context, key string, version int64, apts []*types.Appointment, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(apts)
	if err != nil {
		return false, fmt.Errorf("failed to encode cache entry: %w", err)
	}

	vk := c.versionKey(key)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errVersionMoved
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(key), data, ttl)
			return nil
		})
		return err
	}, vk)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errVersionMoved), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("failed to write cache: %w", err)
	}
}

// Invalidate deletes the entry for key and advances its version
func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	vk := c.versionKey(key)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vk)
		pipe.Expire(ctx, vk, versionTTL)
		pipe.Del(ctx, c.key(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
