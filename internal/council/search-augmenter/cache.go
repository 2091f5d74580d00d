// internal/council/search-augmenter/cache.go
package searchaugmenter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"ai-council/internal/models"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "council:search:"

// RedisCache keeps collaborator results for a short TTL, keyed by the
// normalized query text.
type RedisCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log Logger) *RedisCache {
	return &RedisCache{redis: client, ttl: ttl, logger: log}
}

func (c *RedisCache) Get(ctx context.Context, query string) ([]models.SearchResult, bool) {
	val, err := c.redis.Get(ctx, cacheKey(query)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("search cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return nil, false
	}

	var results []models.SearchResult
	if err := json.Unmarshal([]byte(val), &results); err != nil {
		return nil, false
	}
	return results, true
}

func (c *RedisCache) Set(ctx context.Context, query string, results []models.SearchResult) {
	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKey(query), data, c.ttl).Err(); err != nil {
		c.logger.Warn("search cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

func cacheKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
