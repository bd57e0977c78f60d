// Package notifications publishes post and vote events to Redis and fans them
// out to live feed websocket clients.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"chirp/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes event envelopes to Redis channels. A Notifier without a
// client drops every event.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events reach Redis.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// Ping checks the Redis connection.
func (n *Notifier) Ping(ctx context.Context) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Ping(ctx).Err()
}

// Publish wraps payload in an Event envelope and publishes it on channel.
func (n *Notifier) Publish(ctx context.Context, channel, eventType string, payload any) error {
	if !n.Enabled() {
		return nil
	}
	data, err := encodeEvent(eventType, payload)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, channel, data).Err()
}

func encodeEvent(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	data, err := json.Marshal(Event{Type: eventType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// StartPatternSubscriber subscribes to every chirp event channel and calls
// onMessage for each incoming message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, ChannelPattern)
	// Wait for the subscription confirmation so no publish is missed after return.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", ChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
