/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus fans domain events out across instances. Every transport
// delivers locally through an in-process bus first, so same-node subscribers
// keep working when the remote side is down.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/recruitd/internal/config"
	"github.com/friendsincode/recruitd/internal/events"
)

// Transport is a Broker backed by an external system.
type Transport interface {
	events.Broker
	Close() error
}

// message is the wire envelope shared by all transports.
type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"` // For identifying source node
	MessageID string           `json:"message_id"`
}

func marshalMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	msg := message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	}
	return json.Marshal(msg)
}

func unmarshalMessage(data []byte) (*message, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal event message: %w", err)
	}
	return &msg, nil
}

// NodeID combines the hostname with a random suffix.
func NodeID(instanceID string) string {
	if instanceID != "" {
		return instanceID
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "recruitd"
	}
	return host + "-" + uuid.NewString()[:8]
}

// memory wraps the in-process bus as a Transport.
type memory struct {
	*events.Bus
}

func (memory) Close() error { return nil }

// New selects the transport named in cfg. Remote transports that cannot
// connect degrade to in-process delivery rather than failing startup.
func New(cfg *config.Config, logger zerolog.Logger) (Transport, error) {
	nodeID := NodeID(cfg.InstanceID)

	switch cfg.EventBackend {
	case config.EventsRedis:
		rc := DefaultRedisConfig()
		rc.Addr = cfg.RedisAddr
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		return NewRedisBus(rc, nodeID, logger)
	case config.EventsNATS:
		nc := DefaultNATSConfig()
		nc.URL = cfg.NATSURL
		return NewNATSBus(nc, nodeID, logger)
	case config.EventsAMQP:
		ac := DefaultAMQPConfig()
		ac.URL = cfg.AMQPURL
		ac.Exchange = cfg.AMQPExchange
		return NewAMQPBus(ac, nodeID, logger)
	case config.EventsMemory, "":
		return memory{events.NewBus()}, nil
	default:
		return nil, fmt.Errorf("unsupported event backend %q", cfg.EventBackend)
	}
}
