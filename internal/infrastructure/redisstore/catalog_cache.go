package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-assistant/internal/application/catalog"
	domain "github.com/Zhima-Mochi/minishop-assistant/internal/domain/catalog"

	"github.com/redis/go-redis/v9"
)

const DefaultCatalogTTL = 5 * time.Minute

// CatalogCache caches catalog responses with a jittered TTL so entries
// written together do not expire together.
type CatalogCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogCache{client: client, baseTTL: ttl}
}

func (c *CatalogCache) Categories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.get(ctx, categoriesKey(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogCache) SetCategories(ctx context.Context, categories []domain.Category) error {
	return c.set(ctx, categoriesKey(), categories)
}

func (c *CatalogCache) Items(ctx context.Context, category string) ([]domain.Item, error) {
	var out []domain.Item
	if err := c.get(ctx, itemsKey(category), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogCache) SetItems(ctx context.Context, category string, items []domain.Item) error {
	return c.set(ctx, itemsKey(category), items)
}

func (c *CatalogCache) get(ctx context.Context, key string, dst any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return catalog.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (c *CatalogCache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	jitter := time.Duration(rand.Int63n(int64(c.baseTTL/5) + 1))
	if err := c.client.Set(ctx, key, data, c.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func categoriesKey() string { return "shop:catalog:categories" }

func itemsKey(category string) string {
	return "shop:catalog:items:" + strings.ToLower(strings.TrimSpace(category))
}
