// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

//go:build nats

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/tourbook/internal/config"
)

const defaultStream = "BOOKINGS"

func newNATSTransport(cfg config.EventBusConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, func() error, error) {
	var embedded *server.Server
	url := cfg.NATSURL
	if cfg.EmbeddedServer {
		ns, err := startEmbedded(cfg.StoreDir)
		if err != nil {
			return nil, nil, nil, err
		}
		embedded = ns
		url = ns.ClientURL()
	}
	shutdown := func() {
		if embedded != nil {
			embedded.Shutdown()
			embedded.WaitForShutdown()
		}
	}

	stream := cfg.Stream
	if stream == "" {
		stream = defaultStream
	}
	if err := ensureStream(url, stream); err != nil {
		shutdown()
		return nil, nil, nil, err
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
		},
	}, logger)
	if err != nil {
		shutdown()
		return nil, nil, nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: "tourbook",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			DurablePrefix: "tourbook",
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.BindStream(stream),
				natsgo.DeliverNew(),
				natsgo.MaxDeliver(5),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		shutdown()
		return nil, nil, nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	closeFn := func() error {
		err := errors.Join(sub.Close(), pub.Close())
		shutdown()
		return err
	}
	return pub, sub, closeFn, nil
}

func startEmbedded(storeDir string) (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		ServerName: "tourbook-events",
		Host:       "127.0.0.1",
		Port:       server.RANDOM_PORT,
		JetStream:  true,
		StoreDir:   storeDir,
		NoSigs:     true,
		NoLog:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("nats server not ready within timeout")
	}
	return ns, nil
}

// ensureStream creates or updates the stream holding booking subjects.
func ensureStream(url, name string) error {
	nc, err := natsgo.Connect(url)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("jetstream: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := jetstream.StreamConfig{
		Name:       name,
		Subjects:   []string{"bookings.>"},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: 2 * time.Minute,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}
	if _, err := js.Stream(ctx, name); err == nil {
		if _, err := js.UpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("update stream %s: %w", name, err)
		}
		return nil
	} else if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("check stream %s: %w", name, err)
	}
	if _, err := js.CreateStream(ctx, cfg); err != nil {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	return nil
}
