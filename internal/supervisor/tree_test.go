// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockService runs until canceled, failing the first fails starts.
type mockService struct {
	name   string
	fails  int32
	starts atomic.Int32
}

func (m *mockService) Serve(ctx context.Context) error {
	if n := m.starts.Add(1); n <= m.fails {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewSupervisorTreeDefaults(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(testLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("root supervisor is nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want defaults", tree.config)
	}

	custom, _ := NewSupervisorTree(nil, TreeConfig{FailureBackoff: time.Second})
	if custom.config.FailureBackoff != time.Second || custom.logger == nil {
		t.Errorf("custom config = %+v", custom.config)
	}
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(testLogger(), TreeConfig{
		FailureBackoff:  50 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}

	data := &mockService{name: "data"}
	messaging := &mockService{name: "messaging", fails: 2}
	api := &mockService{name: "api"}
	tree.AddDataService(data)
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for messaging.starts.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := messaging.starts.Load(); n < 3 {
		t.Errorf("messaging restarts = %d, want at least 3 starts", n)
	}
	if data.starts.Load() != 1 || api.starts.Load() != 1 {
		t.Errorf("a failure in one layer restarted another: data=%d api=%d",
			data.starts.Load(), api.starts.Load())
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("tree stopped with %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
}

// stopRecorder notes the order in which services return from Serve.
type stopRecorder struct {
	mu    sync.Mutex
	order []string
}

type orderedService struct {
	name string
	rec  *stopRecorder
}

func (o *orderedService) Serve(ctx context.Context) error {
	<-ctx.Done()
	// Give a wrongly ordered concurrent stop a chance to interleave.
	time.Sleep(20 * time.Millisecond)
	o.rec.mu.Lock()
	o.rec.order = append(o.rec.order, o.name)
	o.rec.mu.Unlock()
	return ctx.Err()
}

func (o *orderedService) String() string { return o.name }

func TestSupervisorTreeDrainsAPIFirst(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	rec := &stopRecorder{}
	tree.AddDataService(&orderedService{name: "ledger-gc", rec: rec})
	tree.AddMessagingService(&orderedService{name: "eventbus", rec: rec})
	tree.AddAPIService(&orderedService{name: "http-server", rec: rec})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("tree stopped with %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
	}

	rec.mu.Lock()
	order := slices.Clone(rec.order)
	rec.mu.Unlock()
	if want := []string{"http-server", "eventbus", "ledger-gc"}; !slices.Equal(order, want) {
		t.Errorf("services stopped in order %v, want %v", order, want)
	}
	if want := []string{LayerAPI, LayerMessaging, LayerData}; !slices.Equal(tree.DrainOrder(), want) {
		t.Errorf("DrainOrder() = %v, want %v", tree.DrainOrder(), want)
	}
	if report, _ := tree.UnstoppedServiceReport(); len(report) != 0 {
		t.Errorf("unstopped = %+v", report)
	}
}
