// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisOptions configures a RedisPublisher
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string

	// History is how many events per device are kept in a list; 0 keeps none
	History int64
}

// RedisPublisher publishes events on a Redis channel and keeps a short
// per-device history list
type RedisPublisher struct {
	client  *redis.Client
	channel string
	history int64
	log     logrus.FieldLogger
}

// NewRedisPublisher connects and pings the server
func NewRedisPublisher(ctx context.Context, opts RedisOptions, log logrus.FieldLogger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	log.WithField("addr", opts.Addr).Info("Redis connected")

	return &RedisPublisher{
		client:  client,
		channel: opts.Channel,
		history: opts.History,
		log:     log,
	}, nil
}

// HistoryKey is the list holding a device's recent events
func HistoryKey(device string) string {
	return fmt.Sprintf("optic:%s:events", device)
}

// Publish sends e on the channel and pushes it onto the device history
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	if p.history > 0 {
		key := HistoryKey(e.Device)
		pipe := p.client.Pipeline()
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, p.history-1)
		if _, err := pipe.Exec(ctx); err != nil {
			p.log.WithError(err).WithField("key", key).Warn("event history not saved")
		}
	}
	return nil
}

// Close releases the connection pool
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
