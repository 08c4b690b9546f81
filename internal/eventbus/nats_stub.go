// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

//go:build !nats

package eventbus

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/tourbook/internal/config"
)

func newNATSTransport(config.EventBusConfig, watermill.LoggerAdapter) (message.Publisher, message.Subscriber, func() error, error) {
	return nil, nil, nil, errors.New("nats event bus not available: build with -tags=nats")
}
