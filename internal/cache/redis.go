package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	redisOpTimeout = 2 * time.Second
	redisScanBatch = 200
)

// RedisCache stores entries in Redis under a namespace. Expiry is delegated to Redis.
type RedisCache struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

// NewRedisCache connects to the Redis server at url (redis://...) and verifies it
func NewRedisCache(ctx context.Context, url, namespace string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisCacheWithClient(client, namespace, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client redis.UniversalClient, namespace string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
	}
}

// Get retrieves a value; any Redis failure is treated as a miss
func (c *RedisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, c.namespace+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("Redis cache get failed")
		}
		return nil, false
	}
	return data, true
}

// Set stores a value with the cache TTL
func (c *RedisCache) Set(key string, value []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.namespace+key, value, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis cache set failed")
	}
}

// Remove deletes a key
func (c *RedisCache) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.Del(ctx, c.namespace+key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis cache delete failed")
	}
}

// RemovePrefix deletes every key under prefix using SCAN
func (c *RedisCache) RemovePrefix(prefix string) {
	c.deleteMatching(c.namespace + prefix + "*")
}

// Clear deletes every key of the namespace
func (c *RedisCache) Clear() {
	c.deleteMatching(c.namespace + "*")
}

// Close releases the underlying client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) deleteMatching(pattern string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*redisOpTimeout)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, redisScanBatch).Result()
		if err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("Redis cache scan failed")
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				log.Warn().Err(err).Str("pattern", pattern).Msg("Redis cache delete failed")
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
