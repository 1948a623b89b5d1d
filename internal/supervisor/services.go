// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPServer matches the lifecycle surface of *http.Server and the api
// package's server wrapper, so the service can supervise either.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService adapts a blocking HTTP server to suture's context-aware
// Serve contract.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPService wraps an HTTP server as a supervised service.
func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return ctx.Err()
	}
}

func (s *HTTPService) String() string {
	return "http-server"
}

// MessageRouter matches the eventprocessor router's run surface.
type MessageRouter interface {
	Run(ctx context.Context) error
}

// RouterService supervises the watermill message router.
type RouterService struct {
	router MessageRouter
}

// NewRouterService wraps the message router as a supervised service.
func NewRouterService(router MessageRouter) *RouterService {
	return &RouterService{router: router}
}

// Serve implements suture.Service. Run blocks until context
// cancellation; router failures bubble up for a supervised restart.
func (s *RouterService) Serve(ctx context.Context) error {
	if err := s.router.Run(ctx); err != nil {
		return fmt.Errorf("message router failed: %w", err)
	}
	return ctx.Err()
}

func (s *RouterService) String() string {
	return "message-router"
}

// BatchFlusher matches the detection handler's interval-flush surface.
type BatchFlusher interface {
	Start(ctx context.Context)
}

// FlusherService supervises the detection handler's interval flusher.
type FlusherService struct {
	flusher BatchFlusher
}

// NewFlusherService wraps the batch flusher as a supervised service.
func NewFlusherService(flusher BatchFlusher) *FlusherService {
	return &FlusherService{flusher: flusher}
}

// Serve implements suture.Service.
func (s *FlusherService) Serve(ctx context.Context) error {
	s.flusher.Start(ctx)
	return ctx.Err()
}

func (s *FlusherService) String() string {
	return "batch-flusher"
}
