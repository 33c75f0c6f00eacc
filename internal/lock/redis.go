/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/recruitd/internal/telemetry"
)

const (
	defaultKeyPrefix     = "recruitd:lock:"
	defaultLease         = 10 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
)

// Only delete if we still own it
const releaseScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// Only extend if we still own it
const renewScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`

// RedisConfig configures the distributed locker.
type RedisConfig struct {
	KeyPrefix       string
	Lease           time.Duration // lease per key; bounds how long a crashed holder blocks others
	RenewalInterval time.Duration // defaults to a third of Lease
	RetryInterval   time.Duration
}

// Redis serializes writes across instances with SET NX PX leases. Each
// acquisition carries a random token so a holder whose lease expired
// cannot release a lease taken over by someone else. Leases are renewed
// while held, so a slow transaction keeps its keys.
type Redis struct {
	client redis.UniversalClient
	logger zerolog.Logger
	config RedisConfig
}

// NewRedis creates a distributed locker on an existing client.
func NewRedis(client redis.UniversalClient, cfg RedisConfig, logger zerolog.Logger) *Redis {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.Lease <= 0 {
		cfg.Lease = defaultLease
	}
	if cfg.RenewalInterval <= 0 || cfg.RenewalInterval >= cfg.Lease {
		cfg.RenewalInterval = cfg.Lease / 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	return &Redis{
		client: client,
		logger: logger.With().Str("component", "redis_lock").Logger(),
		config: cfg,
	}
}

// Lock acquires every key in sorted order, retrying until ctx is done.
func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	start := time.Now()
	keys = normalize(keys)
	token := uuid.NewString()

	held := make([]string, 0, len(keys))
	release := func() {
		// Release must outlive a cancelled request context.
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := r.client.Eval(relCtx, releaseScript, []string{r.config.KeyPrefix + held[i]}, token).Err(); err != nil {
				r.logger.Warn().Err(err).Str("key", held[i]).Msg("failed to release lock")
			}
		}
	}

	for _, key := range keys {
		if err := r.acquire(ctx, key, token); err != nil {
			release()
			return nil, err
		}
		held = append(held, key)
	}
	telemetry.LockWaitDuration.WithLabelValues("redis").Observe(time.Since(start).Seconds())

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		heartbeat(stop, r.config.RenewalInterval, func() error { return r.renew(held, token) })
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped
			release()
		})
	}, nil
}

// errLeaseLost means a renewal found a key no longer owned by this holder.
var errLeaseLost = errors.New("lock lease lost")

func (r *Redis) renew(keys []string, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.RenewalInterval)
	defer cancel()
	for _, key := range keys {
		n, err := r.client.Eval(ctx, renewScript, []string{r.config.KeyPrefix + key}, token, r.config.Lease.Milliseconds()).Int()
		if err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("failed to renew lock")
			continue
		}
		if n == 0 {
			r.logger.Error().Str("key", key).Msg("lock lease expired while held")
			return fmt.Errorf("%w: %s", errLeaseLost, key)
		}
	}
	return nil
}

// heartbeat calls renew every interval until stop is closed or renew
// reports errLeaseLost.
func heartbeat(stop <-chan struct{}, interval time.Duration, renew func() error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := renew(); errors.Is(err, errLeaseLost) {
				return
			}
		}
	}
}

func (r *Redis) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(r.config.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, r.config.KeyPrefix+key, token, r.config.Lease).Result()
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}
}
