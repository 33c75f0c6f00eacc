/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache keeps directory listings in Redis. Every method is safe on
// a nil *Cache, and Redis failures degrade to cache misses; the database
// stays the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/recruitd/internal/telemetry"
)

const (
	DefaultDirectoryListTTL = 5 * time.Minute
	DefaultRetryAfter       = 30 * time.Second

	keyNamespace = "recruitd:cache:"
)

// Listing key prefixes. The filter string is appended.
const (
	KeyInterviewerList = keyNamespace + "interviewers:"
	KeyRoomList        = keyNamespace + "rooms:"
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DirectoryListTTL time.Duration

	// RetryAfter is how long the cache stays bypassed after a Redis error.
	// Zero keeps it bypassed until restart.
	RetryAfter time.Duration
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:        "localhost:6379",
		DirectoryListTTL: DefaultDirectoryListTTL,
		RetryAfter:       DefaultRetryAfter,
	}
}

// Cache is a read-through helper for directory listings.
type Cache struct {
	client redis.UniversalClient
	logger zerolog.Logger
	config Config
	now    func() time.Time

	mu           sync.Mutex
	trippedAt    time.Time
	tripped      bool
	disconnected bool
}

// New connects to Redis. An unreachable server is not an error: the
// returned cache is permanently bypassed and a warning is logged.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis cache unavailable, running without caching")
		_ = client.Close()
		c := NewWithClient(nil, cfg, logger)
		c.disconnected = true
		return c, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")
	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, cfg Config, logger zerolog.Logger) *Cache {
	if cfg.DirectoryListTTL <= 0 {
		cfg.DirectoryListTTL = DefaultDirectoryListTTL
	}
	return &Cache{
		client:       client,
		logger:       logger.With().Str("component", "cache").Logger(),
		config:       cfg,
		now:          time.Now,
		disconnected: client == nil,
	}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// IsAvailable reports whether lookups currently reach Redis.
func (c *Cache) IsAvailable() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disconnected {
		return false
	}
	if c.tripped && c.config.RetryAfter > 0 && c.now().Sub(c.trippedAt) >= c.config.RetryAfter {
		c.tripped = false
		c.logger.Info().Msg("retrying Redis cache")
	}
	return !c.tripped
}

// trip bypasses the cache after a Redis failure.
func (c *Cache) trip(err error, operation string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tripped {
		c.logger.Warn().Err(err).Str("operation", operation).Dur("retry_after", c.config.RetryAfter).Msg("bypassing cache after Redis error")
	}
	c.tripped = true
	c.trippedAt = c.now()
}

// GetList loads a cached listing into dest and reports whether it was found.
func (c *Cache) GetList(ctx context.Context, prefix, filter string, dest any) bool {
	if !c.IsAvailable() {
		return false
	}

	data, err := c.client.Get(ctx, prefix+filter).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		telemetry.CacheRequestsTotal.WithLabelValues(prefix, "miss").Inc()
		return false
	case err != nil:
		c.trip(err, "get")
		telemetry.CacheRequestsTotal.WithLabelValues(prefix, "error").Inc()
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// Stale shape after a deploy; treat as a miss and let SetList overwrite it.
		c.logger.Debug().Err(err).Str("key", prefix+filter).Msg("discarding undecodable cache entry")
		telemetry.CacheRequestsTotal.WithLabelValues(prefix, "miss").Inc()
		return false
	}

	telemetry.CacheRequestsTotal.WithLabelValues(prefix, "hit").Inc()
	return true
}

// SetList caches a listing.
func (c *Cache) SetList(ctx context.Context, prefix, filter string, value any) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	if err := c.client.Set(ctx, prefix+filter, data, c.config.DirectoryListTTL).Err(); err != nil {
		c.trip(err, "set")
		return err
	}
	return nil
}

// InvalidateList drops every cached listing under prefix.
func (c *Cache) InvalidateList(ctx context.Context, prefix string) error {
	if !c.IsAvailable() {
		return nil
	}

	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.del(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		c.trip(err, "scan")
		return err
	}
	return c.del(ctx, batch)
}

func (c *Cache) del(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.trip(err, "del")
		return err
	}
	return nil
}
