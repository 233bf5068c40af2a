package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-tmdb/pkg/models"
)

// IDCache remembers storage-assigned dimension ids by natural key.
// A cache failure is never fatal: Get reports a miss and Set is best effort.
type IDCache interface {
	Get(ctx context.Context, kind models.EntityKind, naturalKey string) (int64, bool)
	Set(ctx context.Context, kind models.EntityKind, naturalKey string, id int64)
}

type memoryIDCache struct {
	mu  sync.RWMutex
	ids map[string]int64
}

// NewMemoryIDCache creates a process-local cache.
func NewMemoryIDCache() IDCache {
	return &memoryIDCache{ids: make(map[string]int64)}
}

var _ IDCache = (*memoryIDCache)(nil)

func (c *memoryIDCache) Get(_ context.Context, kind models.EntityKind, naturalKey string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[cacheKey(kind, naturalKey)]
	return id, ok
}

func (c *memoryIDCache) Set(_ context.Context, kind models.EntityKind, naturalKey string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[cacheKey(kind, naturalKey)] = id
}

type redisIDCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisIDCache creates a cache shared by every ingest process pointed at the
// same Redis. Keys are "<prefix><kind>:<natural key>"; ttl 0 keeps them forever.
func NewRedisIDCache(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) IDCache {
	return &redisIDCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.Named("id_cache"),
	}
}

var _ IDCache = (*redisIDCache)(nil)

func (c *redisIDCache) Get(ctx context.Context, kind models.EntityKind, naturalKey string) (int64, bool) {
	key := c.prefix + cacheKey(kind, naturalKey)
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false
	}
	if err != nil {
		c.logger.Warn("Id cache read failed", zap.String("key", key), zap.Error(err))
		return 0, false
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		c.logger.Warn("Id cache holds a non-numeric value", zap.String("key", key), zap.String("value", val))
		return 0, false
	}
	return id, true
}

func (c *redisIDCache) Set(ctx context.Context, kind models.EntityKind, naturalKey string, id int64) {
	key := c.prefix + cacheKey(kind, naturalKey)
	if err := c.client.Set(ctx, key, id, c.ttl).Err(); err != nil {
		c.logger.Warn("Id cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(kind models.EntityKind, naturalKey string) string {
	return string(kind) + ":" + naturalKey
}
