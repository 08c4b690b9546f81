// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Layer names as they appear in supervisor logs.
const (
	LayerData      = "tourbook/data"
	LayerMessaging = "tourbook/messaging"
	LayerAPI       = "tourbook/api"
)

// layer is a child supervisor and its token under the root.
type layer struct {
	name  string
	sup   *suture.Supervisor
	token suture.ServiceToken
}

// SupervisorTree is the root supervisor and its three layers.
//
// On shutdown the layers drain in a fixed order: the API layer first so no
// new checkout or webhook is accepted, then the event bus so in-flight
// booking events are flushed, then storage maintenance.
type SupervisorTree struct {
	root      *suture.Supervisor
	data      layer
	messaging layer
	api       layer
	logger    *slog.Logger
	config    TreeConfig

	mu        sync.Mutex
	drained   []string
	unstopped []suture.UnstoppedService
}

// NewSupervisorTree creates a new supervisor tree with the given configuration.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	def := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = def.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = def.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}

	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	// Children inherit the EventHook when added to the root.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("tourbook", rootSpec)
	t := &SupervisorTree{
		root:   root,
		logger: logger,
		config: config,
	}
	t.data = newLayer(root, LayerData, childSpec)
	t.messaging = newLayer(root, LayerMessaging, childSpec)
	t.api = newLayer(root, LayerAPI, childSpec)
	return t, nil
}

func newLayer(root *suture.Supervisor, name string, spec suture.Spec) layer {
	sup := suture.New(name, spec)
	return layer{name: name, sup: sup, token: root.Add(sup)}
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// AddDataService adds a storage maintenance service.
func (t *SupervisorTree) AddDataService(svc suture.Service) suture.ServiceToken {
	return t.data.sup.Add(svc)
}

// AddMessagingService adds an event bus service.
func (t *SupervisorTree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.sup.Add(svc)
}

// AddAPIService adds the HTTP server.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.sup.Add(svc)
}

// Serve starts the tree and blocks until ctx is canceled and every layer
// has drained.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return <-t.ServeBackground(ctx)
}

// ServeBackground starts the tree in a goroutine. The channel receives the
// result when the tree stops. Canceling ctx drains the layers in order
// before the root itself stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	rootCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	rootErr := t.root.ServeBackground(rootCtx)
	out := make(chan error, 1)
	go func() {
		defer cancel()
		select {
		case err := <-rootErr:
			out <- err
			return
		case <-ctx.Done():
		}
		t.drain()
		cancel()
		out <- <-rootErr
	}()
	return out
}

func (t *SupervisorTree) drain() {
	for _, l := range []layer{t.api, t.messaging, t.data} {
		err := t.root.RemoveAndWait(l.token, t.config.ShutdownTimeout)
		t.mu.Lock()
		t.drained = append(t.drained, l.name)
		if err != nil {
			t.unstopped = append(t.unstopped, suture.UnstoppedService{Name: l.name, Service: l.sup, ServiceToken: l.token})
		}
		t.mu.Unlock()
		if err != nil {
			t.logger.Warn("layer did not stop in time", "layer", l.name, "timeout", t.config.ShutdownTimeout, "error", err)
			continue
		}
		t.logger.Info("layer stopped", "layer", l.name)
	}
}

// DrainOrder lists the layers in the order they were stopped.
func (t *SupervisorTree) DrainOrder() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.drained...)
}

// UnstoppedServiceReport lists layers that missed the shutdown timeout
// while draining, plus anything the root itself could not stop.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	report, err := t.root.UnstoppedServiceReport()
	t.mu.Lock()
	defer t.mu.Unlock()
	return append(append([]suture.UnstoppedService(nil), t.unstopped...), report...), err
}
