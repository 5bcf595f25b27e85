// Package cache предоставляет реализации кэша результатов запросов.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akriventsev/sagastore/core"
	"github.com/akriventsev/sagastore/transport"
)

// RedisCacheConfig конфигурация Redis-кэша запросов
type RedisCacheConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// DefaultRedisCacheConfig возвращает конфигурацию по умолчанию
func DefaultRedisCacheConfig() RedisCacheConfig {
	return RedisCacheConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "sagastore:query",
		TTL:       time.Minute,
	}
}

// Validate проверяет корректность конфигурации
func (c RedisCacheConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis address cannot be empty")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("TTL must be positive")
	}
	return nil
}

// RedisQueryCache кэширует результаты запросов в Redis.
// Ключ строится из имени запроса и хэша его JSON-представления,
// поэтому запросы с разными параметрами кэшируются раздельно.
type RedisQueryCache struct {
	config  RedisCacheConfig
	client  *redis.Client
	running bool
}

// NewRedisQueryCache создает новый Redis-кэш запросов
func NewRedisQueryCache(config RedisCacheConfig) (*RedisQueryCache, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis cache config: %w", err)
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "sagastore:query"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisQueryCache{
		config: config,
		client: client,
	}, nil
}

// NewRedisQueryCacheWithClient создает кэш поверх существующего клиента
func NewRedisQueryCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisQueryCache {
	if keyPrefix == "" {
		keyPrefix = "sagastore:query"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisQueryCache{
		config: RedisCacheConfig{KeyPrefix: keyPrefix, TTL: ttl},
		client: client,
	}
}

// Start проверяет доступность Redis
func (c *RedisQueryCache) Start(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	c.running = true
	return nil
}

// Stop закрывает соединение с Redis
func (c *RedisQueryCache) Stop(ctx context.Context) error {
	c.running = false
	return c.client.Close()
}

// IsRunning возвращает статус кэша
func (c *RedisQueryCache) IsRunning() bool {
	return c.running
}

// Name возвращает имя компонента
func (c *RedisQueryCache) Name() string {
	return "redis-query-cache"
}

// Type возвращает тип компонента
func (c *RedisQueryCache) Type() core.ComponentType {
	return core.ComponentTypeAdapter
}

// Close закрывает соединение с Redis
func (c *RedisQueryCache) Close() error {
	return c.client.Close()
}

// Ping проверяет доступность Redis
func (c *RedisQueryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisQueryCache) cacheKey(query transport.Query) string {
	data, err := json.Marshal(query)
	if err != nil {
		return fmt.Sprintf("%s:%s", c.config.KeyPrefix, query.QueryName())
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s:%s", c.config.KeyPrefix, query.QueryName(), hex.EncodeToString(sum[:16]))
}

// Get возвращает закэшированный результат.
// Результат десериализуется в map/slice, как после JSON round-trip.
func (c *RedisQueryCache) Get(ctx context.Context, query transport.Query) (interface{}, bool) {
	data, err := c.client.Get(ctx, c.cacheKey(query)).Bytes()
	if err != nil {
		return nil, false
	}

	var result interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	return result, true
}

// Set сохраняет результат в кэш с TTL из конфигурации
func (c *RedisQueryCache) Set(ctx context.Context, query transport.Query, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize query result: %w", err)
	}

	if err := c.client.Set(ctx, c.cacheKey(query), data, c.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to cache query result: %w", err)
	}
	return nil
}

// Invalidate удаляет закэшированный результат запроса
func (c *RedisQueryCache) Invalidate(ctx context.Context, query transport.Query) error {
	if err := c.client.Del(ctx, c.cacheKey(query)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate query cache: %w", err)
	}
	return nil
}
