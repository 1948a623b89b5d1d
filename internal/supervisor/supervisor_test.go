// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type fakeServer struct {
	started  chan struct{}
	stop     chan struct{}
	shutdown atomic.Bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{started: make(chan struct{}), stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	close(f.started)
	<-f.stop
	return errors.New("http: Server closed")
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.shutdown.Store(true)
	close(f.stop)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	select {
	case <-srv.started:
	case <-time.After(5 * time.Second):
		t.Fatal("server never started")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	if !srv.shutdown.Load() {
		t.Error("Shutdown was never called")
	}
}

type fakeRouter struct {
	err error
}

func (f *fakeRouter) Run(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

func TestRouterServicePropagatesFailure(t *testing.T) {
	boom := errors.New("broker unreachable")
	svc := NewRouterService(&fakeRouter{err: boom})

	err := svc.Serve(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Serve returned %v, want wrapped broker error", err)
	}
}

func TestTreeRunsAndStops(t *testing.T) {
	tree := NewTree(testLogger(), DefaultTreeConfig())

	srv := newFakeServer()
	tree.AddAPIService(NewHTTPService(srv, time.Second))

	flushed := make(chan struct{})
	tree.AddMessagingService(NewFlusherService(flusherFunc(func(ctx context.Context) {
		close(flushed)
		<-ctx.Done()
	})))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	select {
	case <-srv.started:
	case <-time.After(5 * time.Second):
		t.Fatal("supervised HTTP service never started")
	}
	select {
	case <-flushed:
	case <-time.After(5 * time.Second):
		t.Fatal("supervised flusher never started")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("tree stopped with %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop after cancellation")
	}
}

type flusherFunc func(ctx context.Context)

func (f flusherFunc) Start(ctx context.Context) { f(ctx) }
