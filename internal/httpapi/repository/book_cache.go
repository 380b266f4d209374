package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"libhub/internal/httpapi/models"

	"github.com/redis/go-redis/v9"
)

// BookCache is a small read-through cache for catalog detail lookups. A nil
// cache (or nil client) is a no-op, so the API can run without Redis.
type BookCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBookCache connects to Redis using a redis:// URL.
func NewBookCache(redisURL, password string, ttl time.Duration) (*BookCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &BookCache{client: rdb, ttl: ttl}, nil
}

func bookKey(id int64) string {
	return fmt.Sprintf("book:%d", id)
}

// Get returns the cached book or (nil, nil) on a miss.
func (c *BookCache) Get(ctx context.Context, id int64) (*models.Book, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, bookKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var b models.Book
	if err := json.Unmarshal(raw, &b); err != nil {
		// stale or corrupt entry; treat as a miss
		return nil, nil
	}
	return &b, nil
}

func (c *BookCache) Set(ctx context.Context, b *models.Book) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, bookKey(b.ID), raw, c.ttl).Err()
}

// Invalidate drops a cached book after any stock mutation.
func (c *BookCache) Invalidate(ctx context.Context, id int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, bookKey(id)).Err()
}
