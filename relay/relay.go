// Package relay fans domain events out over the backing store's native
// publish/subscribe channel. Publishing is fire-and-forget: the durable
// record a producer writes before publishing is never rolled back when
// the publish fails, and messages lost while a subscriber is disconnected
// are not replayed.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// DefaultChannel is the deployment-wide notification channel.
const DefaultChannel = "notifications"

// Message is one delivery received from the channel.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription is a live single-channel subscriber. Receive blocks until
// the next message; Close tears the subscription down and unblocks it.
type Subscription interface {
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// PubSub is the store-side publish/subscribe primitive the relay rides.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Handler consumes one message. Errors and panics are logged at the relay
// boundary and never stop delivery of subsequent messages.
type Handler func(ctx context.Context, payload []byte) error

type Relay struct {
	pubsub  PubSub
	channel string
	log     *slog.Logger
}

type Option func(*Relay)

// WithChannel overrides the channel name.
func WithChannel(channel string) Option {
	return func(r *Relay) {
		if channel != "" {
			r.channel = channel
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.log = logger
		}
	}
}

func New(pubsub PubSub, opts ...Option) *Relay {
	r := &Relay{pubsub: pubsub, channel: DefaultChannel, log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Channel returns the channel the relay publishes on.
func (r *Relay) Channel() string { return r.channel }

// Publish sends the payload once. Delivery is at-most-once per currently
// connected subscriber.
func (r *Relay) Publish(ctx context.Context, payload []byte) error {
	if _, err := r.pubsub.Publish(ctx, r.channel, payload); err != nil {
		return fmt.Errorf("relay: publish: %w", err)
	}
	return nil
}

// PublishJSON encodes the event once and publishes it.
func (r *Relay) PublishJSON(ctx context.Context, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("relay: encode event: %w", err)
	}
	return r.Publish(ctx, payload)
}

// Listen subscribes and delivers messages to handler in receipt order
// until ctx is cancelled or the subscription breaks. A failing or
// panicking handler is logged and delivery continues with the next
// message. Listen runs the delivery loop on the calling goroutine.
func (r *Relay) Listen(ctx context.Context, handler Handler) error {
	sub, err := r.pubsub.Subscribe(ctx, r.channel)
	if err != nil {
		return fmt.Errorf("relay: subscribe: %w", err)
	}

	// Close unblocks the pending Receive when the context ends.
	stop := context.AfterFunc(ctx, func() { _ = sub.Close() })
	defer stop()
	defer sub.Close()

	for {
		msg, err := sub.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("relay: receive: %w", err)
		}
		r.deliver(ctx, handler, msg)
	}
}

func (r *Relay) deliver(ctx context.Context, handler Handler, msg Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("relay handler panicked", "channel", msg.Channel, "panic", rec)
		}
	}()
	if err := handler(ctx, msg.Payload); err != nil {
		r.log.Error("relay handler failed", "channel", msg.Channel, "error", err)
	}
}
