package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamelog/ingestion/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config holds Redis connection settings
type Config struct {
	Host      string
	Port      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// RedisCache shares lookups across runs and processes
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "gamelog:"
	}

	return &RedisCache{client: client, ttl: cfg.TTL, prefix: prefix}, nil
}

// Get returns the cached value for key. Redis errors count as misses.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss("redis")
		return "", false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis get failed, treating as miss")
		metrics.RecordCacheMiss("redis")
		return "", false
	}
	metrics.RecordCacheHit("redis")
	return v, true
}

// Set stores value under key with the configured TTL
func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis set failed")
	}
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
