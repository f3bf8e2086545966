package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	KeyDimensions = "catalog:dimensions"
	KeyChallenges = "catalog:challenges"
)

// CatalogCache stores read-mostly catalog listings as JSON. A nil cache, or
// one without a client, misses on every read and ignores writes.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

func (c *CatalogCache) enabled() bool {
	return c != nil && c.client != nil
}

// Get decodes the cached value at key into dst and reports whether it was found.
func (c *CatalogCache) Get(ctx context.Context, key string, dst any) bool {
	if !c.enabled() {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("CatalogCache: get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Printf("CatalogCache: decode %s: %v", key, err)
		return false
	}
	return true
}

func (c *CatalogCache) Set(ctx context.Context, key string, value any) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("CatalogCache: encode %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("CatalogCache: set %s: %v", key, err)
	}
}

func (c *CatalogCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.client.Del(ctx, KeyDimensions, KeyChallenges).Err(); err != nil {
		log.Printf("CatalogCache: invalidate: %v", err)
	}
}

// NewRedisClient returns nil when addr is empty.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
