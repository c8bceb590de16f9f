// Package cache provides a Redis read-through cache for stored image records.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zedseven/textsteg/internal/codec"
	"github.com/zedseven/textsteg/internal/store"
)

// ErrMiss is returned by Get when the record is not cached.
// Callers use errors.Is(err, cache.ErrMiss) to distinguish a miss from a genuine Redis error.
var ErrMiss = errors.New("cache: miss")

const recordSchema = "image"

// Cache stores records in Redis.
type Cache struct {
	client    redis.UniversalClient
	codec     codec.Codec
	keyPrefix string
	ttl       time.Duration
}

// Options configures a new Cache.
type Options struct {
	Client    redis.UniversalClient
	Codec     codec.Codec   // Defaults to codec.Default.
	KeyPrefix string        // Defaults to "textsteg".
	TTL       time.Duration // 0 keeps entries until evicted.
}

// New creates a new Cache.
func New(opts Options) *Cache {
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "textsteg"
	}
	return &Cache{client: opts.Client, codec: opts.Codec, keyPrefix: opts.KeyPrefix, ttl: opts.TTL}
}

// key returns the Redis key for a record id.
func (c *Cache) key(id int64) string {
	return c.keyPrefix + ":" + recordSchema + ":" + strconv.FormatInt(id, 10)
}

// Set stores rec under its id.
func (c *Cache) Set(ctx context.Context, rec store.Record) error {
	b, err := c.codec.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	k := c.key(rec.ID)
	if err := c.client.Set(ctx, k, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", k, err)
	}
	return nil
}

// Get returns the cached record with the given id, or ErrMiss.
func (c *Cache) Get(ctx context.Context, id int64) (store.Record, error) {
	k := c.key(id)
	b, err := c.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.Record{}, ErrMiss
		}
		return store.Record{}, fmt.Errorf("cache get %s: %w", k, err)
	}
	var rec store.Record
	if err := c.codec.Unmarshal(b, &rec); err != nil {
		return store.Record{}, fmt.Errorf("cache unmarshal: %w", err)
	}
	return rec, nil
}

// Delete removes a record from the cache.
func (c *Cache) Delete(ctx context.Context, id int64) error {
	k := c.key(id)
	if err := c.client.Del(ctx, k).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("cache delete %s: %w", k, err)
	}
	return nil
}

// Ping verifies Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Cached is a store.Store that reads through a Cache before falling back to another Store.
// Cache failures are reported to OnError but never fail the call.
type Cached struct {
	Store   store.Store
	Cache   *Cache
	OnHit   func()
	OnMiss  func()
	OnError func(op string, err error)
}

func (c *Cached) Create(ctx context.Context, filename, data string) (store.Record, error) {
	rec, err := c.Store.Create(ctx, filename, data)
	if err != nil {
		return rec, err
	}
	if err := c.Cache.Set(ctx, rec); err != nil {
		c.report("cache_set", err)
	}
	return rec, nil
}

func (c *Cached) Get(ctx context.Context, id int64) (store.Record, error) {
	rec, err := c.Cache.Get(ctx, id)
	if err == nil {
		if c.OnHit != nil {
			c.OnHit()
		}
		return rec, nil
	}
	if !errors.Is(err, ErrMiss) {
		c.report("cache_get", err)
	}
	if c.OnMiss != nil {
		c.OnMiss()
	}

	rec, err = c.Store.Get(ctx, id)
	if err != nil {
		return rec, err
	}
	if err := c.Cache.Set(ctx, rec); err != nil {
		c.report("cache_set", err)
	}
	return rec, nil
}

func (c *Cached) Close() {
	if err := c.Cache.Close(); err != nil {
		c.report("cache_close", err)
	}
	c.Store.Close()
}

func (c *Cached) report(op string, err error) {
	if c.OnError != nil {
		c.OnError(op, err)
	}
}
