// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package eventbus carries booking status events between the webhook
// processor and in-process consumers over Watermill.
//
// The default transport is an in-memory gochannel. Builds with the nats tag
// can use NATS JetStream, optionally with an embedded server.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tourbook/internal/config"
	"github.com/tomtom215/tourbook/internal/logging"
	"github.com/tomtom215/tourbook/internal/models"
)

// Transport backends.
const (
	BackendGoChannel = "gochannel"
	BackendNATS      = "nats"
)

// TopicBookings carries models.BookingEvent payloads.
const TopicBookings = "bookings.status"

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("event bus closed")

// HandlerFunc consumes one booking event. Returning an error retries it.
type HandlerFunc func(ctx context.Context, ev models.BookingEvent) error

type subscription struct {
	name    string
	handler HandlerFunc
}

// Bus publishes booking events and runs the registered consumers.
type Bus struct {
	backend string
	pub     message.Publisher
	sub     message.Subscriber
	closeFn func() error
	logger  watermill.LoggerAdapter

	mu       sync.Mutex
	subs     []subscription
	closed   bool
	running  chan struct{}
	markOnce sync.Once

	// RetryInterval is the first retry delay for failed handlers.
	RetryInterval time.Duration
}

// New builds a bus for cfg.Backend. An empty backend selects gochannel.
func New(cfg config.EventBusConfig) (*Bus, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	b := &Bus{
		backend:       cfg.Backend,
		logger:        logger,
		running:       make(chan struct{}),
		RetryInterval: 200 * time.Millisecond,
	}
	switch cfg.Backend {
	case "", BackendGoChannel:
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
		b.backend = BackendGoChannel
		b.pub, b.sub, b.closeFn = ch, ch, ch.Close
	case BackendNATS:
		pub, sub, closeFn, err := newNATSTransport(cfg, logger)
		if err != nil {
			return nil, err
		}
		b.pub, b.sub, b.closeFn = pub, sub, closeFn
	default:
		return nil, fmt.Errorf("unknown event bus backend %q", cfg.Backend)
	}
	return b, nil
}

// Backend returns the transport in use.
func (b *Bus) Backend() string { return b.backend }

// PublishBooking implements the webhook publisher.
func (b *Bus) PublishBooking(ctx context.Context, ev models.BookingEvent) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode booking event: %w", err)
	}
	id := ev.ID
	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, data)
	msg.Metadata.Set("type", ev.Type)
	msg.Metadata.Set("session_id", ev.SessionID)
	if rid := logging.RequestIDFromContext(ctx); rid != "" {
		msg.Metadata.Set("request_id", rid)
	}
	if err := b.pub.Publish(TopicBookings, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TopicBookings, err)
	}
	return nil
}

// Subscribe registers a consumer. Consumers start with the next Serve.
func (b *Bus) Subscribe(name string, h HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, handler: h})
}

// Running is closed once consumers first start receiving.
func (b *Bus) Running() <-chan struct{} { return b.running }

// Serve runs the consumers until ctx is canceled. A fresh router is built on
// every call so a supervisor can restart it.
func (b *Bus) Serve(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, b.logger)
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}
	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: b.RetryInterval,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			Logger:          b.logger,
		}.Middleware,
	)

	b.mu.Lock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.Unlock()
	for _, s := range subs {
		router.AddConsumerHandler(s.name, TopicBookings, b.sub, decode(s.handler))
	}

	go func() {
		select {
		case <-router.Running():
			b.markOnce.Do(func() { close(b.running) })
		case <-ctx.Done():
		}
	}()

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("event router: %w", err)
	}
	return ctx.Err()
}

func decode(h HandlerFunc) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var ev models.BookingEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			// Malformed payloads never succeed; drop them.
			logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable booking event")
			return nil
		}
		ctx := msg.Context()
		if rid := msg.Metadata.Get("request_id"); rid != "" {
			ctx = logging.ContextWithRequestID(ctx, rid)
		}
		return h(ctx, ev)
	}
}

// Close releases the transport.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	if b.closeFn == nil {
		return nil
	}
	return b.closeFn()
}
