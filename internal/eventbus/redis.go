/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/telemetry"
)

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string

	DialTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxFailures consecutive publish errors switch the bus to local-only
	// delivery until Close.
	MaxFailures int
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		ChannelPrefix: "recruitd:events:",
		DialTimeout:   5 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxFailures:   5,
	}
}

// RedisBus relays events over Redis pub/sub. One pattern subscription
// covers every event type; channels are "<prefix><event_type>".
type RedisBus struct {
	client redis.UniversalClient
	config RedisConfig
	logger zerolog.Logger
	local  *events.Bus
	nodeID string

	degraded atomic.Bool
	failures atomic.Int32

	pubsub *redis.PubSub
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisBus connects to Redis. An unreachable server yields a bus that
// only delivers in-process.
func NewRedisBus(cfg RedisConfig, nodeID string, logger zerolog.Logger) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis event transport unreachable, delivering in-process only")
		_ = client.Close()
		rb := newRedisBus(nil, cfg, nodeID, logger)
		rb.degraded.Store(true)
		return rb, nil
	}

	rb := newRedisBus(client, cfg, nodeID, logger)
	rb.start()
	rb.logger.Info().Str("addr", cfg.Addr).Str("node_id", nodeID).Msg("Redis event transport ready")
	return rb, nil
}

func newRedisBus(client redis.UniversalClient, cfg RedisConfig, nodeID string, logger zerolog.Logger) *RedisBus {
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = DefaultRedisConfig().ChannelPrefix
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultRedisConfig().MaxFailures
	}
	return &RedisBus{
		client: client,
		config: cfg,
		logger: logger.With().Str("component", "redis_event_bus").Logger(),
		local:  events.NewBus(),
		nodeID: nodeID,
	}
}

func (rb *RedisBus) start() {
	ctx, cancel := context.WithCancel(context.Background())
	rb.cancel = cancel
	rb.pubsub = rb.client.PSubscribe(ctx, rb.config.ChannelPrefix+"*")

	rb.wg.Add(1)
	go rb.relay(ctx)
}

// relay hands remote events to local subscribers, skipping our own echoes.
func (rb *RedisBus) relay(ctx context.Context) {
	defer rb.wg.Done()

	ch := rb.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			m, err := unmarshalMessage([]byte(msg.Payload))
			if err != nil {
				rb.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed event")
				continue
			}
			if m.NodeID == rb.nodeID {
				continue
			}
			eventType := m.EventType
			if eventType == "" {
				eventType = events.EventType(strings.TrimPrefix(msg.Channel, rb.config.ChannelPrefix))
			}
			rb.local.Publish(eventType, m.Payload)
		}
	}
}

// Subscribe registers a local subscriber. Remote events of every type are
// already being received.
func (rb *RedisBus) Subscribe(eventType events.EventType) events.Subscriber {
	return rb.local.Subscribe(eventType)
}

// Unsubscribe removes a local subscriber.
func (rb *RedisBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	rb.local.Unsubscribe(eventType, sub)
}

// Publish delivers locally, then to the other nodes.
func (rb *RedisBus) Publish(eventType events.EventType, payload events.Payload) {
	rb.local.Publish(eventType, payload)

	if rb.degraded.Load() {
		telemetry.EventsPublishedTotal.WithLabelValues(string(eventType), "memory").Inc()
		return
	}

	data, err := marshalMessage(eventType, payload, rb.nodeID)
	if err != nil {
		rb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), rb.config.WriteTimeout)
	defer cancel()

	if err := rb.client.Publish(ctx, rb.config.ChannelPrefix+string(eventType), data).Err(); err != nil {
		n := rb.failures.Add(1)
		rb.logger.Error().Err(err).Str("event_type", string(eventType)).Int32("failures", n).Msg("failed to publish to Redis")
		if int(n) >= rb.config.MaxFailures && rb.degraded.CompareAndSwap(false, true) {
			rb.logger.Warn().Msg("Redis failure threshold reached, delivering in-process only")
		}
		return
	}
	rb.failures.Store(0)
	telemetry.EventsPublishedTotal.WithLabelValues(string(eventType), "redis").Inc()
}

// Close stops the relay and closes the client.
func (rb *RedisBus) Close() error {
	if rb.cancel != nil {
		rb.cancel()
	}
	if rb.pubsub != nil {
		_ = rb.pubsub.Close()
	}
	rb.wg.Wait()

	if rb.client == nil {
		return nil
	}
	return rb.client.Close()
}
