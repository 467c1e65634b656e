// Package cache is the one cache-invalidation policy for read views: every
// cached view is keyed by entity id, written through on read, and deleted on
// any write that touches the entity. There is no secondary refresh path.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent. Callers fall back to the
// database and repopulate.
var ErrMiss = errors.New("cache miss")

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(addr, password string, ttl time.Duration) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("WARN: redis ping failed: %v (addr: %s)", err, addr)
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func orderKey(venueID, orderID uuid.UUID) string {
	return fmt.Sprintf("venue:%s:order:%s", venueID, orderID)
}

func tablesKey(venueID uuid.UUID) string {
	return fmt.Sprintf("venue:%s:tables", venueID)
}

// GetJSON unmarshals the cached value at key into dest.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// SetJSON stores v at key for the configured TTL. Failures are logged and
// swallowed: the cache is an optimization, never a source of truth.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("WARN: cache marshal %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("WARN: cache set %s: %v", key, err)
	}
}

func (c *Cache) delete(ctx context.Context, keys ...string) {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("WARN: cache delete %v: %v", keys, err)
	}
}

func (c *Cache) OrderKey(venueID, orderID uuid.UUID) string {
	return orderKey(venueID, orderID)
}

func (c *Cache) TablesKey(venueID uuid.UUID) string {
	return tablesKey(venueID)
}

// InvalidateOrder drops the cached order detail view.
func (c *Cache) InvalidateOrder(ctx context.Context, venueID, orderID uuid.UUID) {
	c.delete(ctx, orderKey(venueID, orderID))
}

// InvalidateTables drops the venue's table list view.
func (c *Cache) InvalidateTables(ctx context.Context, venueID uuid.UUID) {
	c.delete(ctx, tablesKey(venueID))
}
