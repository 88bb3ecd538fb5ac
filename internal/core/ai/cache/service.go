package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"recipe-suggester/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// RedisCache 使用 Redis 的模型回應快取，與任務儲存共用連線
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	hits   int64
	misses int64
}

// NewRedisCache 創建 Redis 快取
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get 獲取緩存
func (s *RedisCache) Get(ctx context.Context, prompt string) (string, error) {
	value, err := s.client.Get(ctx, redisKey(prompt)).Result()
	if errors.Is(err, redis.Nil) {
		atomic.AddInt64(&s.misses, 1)
		return "", common.ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	atomic.AddInt64(&s.hits, 1)
	return value, nil
}

// Set 設置緩存
func (s *RedisCache) Set(ctx context.Context, prompt, value string) error {
	if err := s.client.Set(ctx, redisKey(prompt), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func redisKey(prompt string) string {
	return "recipe-suggester:ai:response:" + generateKey(prompt)
}

// GetStats 獲取緩存統計信息
func (s *RedisCache) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"backend": "redis",
		"hits":    atomic.LoadInt64(&s.hits),
		"misses":  atomic.LoadInt64(&s.misses),
	}
}

// Close 連線由任務儲存負責關閉
func (s *RedisCache) Close() error {
	return nil
}
