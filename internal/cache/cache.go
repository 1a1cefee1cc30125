package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oyilmaz/priceradar/internal/models"
)

// RedisClient is the subset of redis commands the cache needs,
// extracted so tests can substitute a fake.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Cache memoizes successful resolutions so reruns over the same input
// do not hammer the marketplaces again. A nil *Cache is a no-op, which
// keeps the wiring simple when no redis address is configured.
type Cache struct {
	client RedisClient
	ttl    time.Duration
	logger *slog.Logger
}

func New(addr, password string, db int, ttl time.Duration) *Cache {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewWithClient(client, ttl)
}

func NewWithClient(client RedisClient, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "cache"),
	}
}

func (c *Cache) key(marketplace models.Marketplace, productName string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(productName)), " ")
	return fmt.Sprintf("price:%s:%s", strings.ToLower(string(marketplace)), normalized)
}

// Get returns a previously stored resolution, or false on miss or any
// transport problem. Cache trouble must never fail a resolution.
func (c *Cache) Get(ctx context.Context, marketplace models.Marketplace, productName string) (*models.ResolvedResult, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, c.key(marketplace, productName)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", "error", err)
		}
		return nil, false
	}

	var result models.ResolvedResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("cache entry corrupt, ignoring", "error", err)
		return nil, false
	}
	return &result, true
}

// Set stores a successful resolution for the configured TTL.
func (c *Cache) Set(ctx context.Context, result *models.ResolvedResult) {
	if c == nil || result == nil || !result.Success {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(result.Marketplace, result.ProductName), data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
