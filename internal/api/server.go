// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/raskell-io/cloudsentry/internal/logging"
)

// Server wraps http.Server with sane timeouts and graceful shutdown.
type Server struct {
	srv *http.Server
}

// NewServer creates an HTTP server for the given handler.
func NewServer(addr string, handler http.Handler, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       timeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      timeout,
			IdleTimeout:       2 * timeout,
		},
	}
}

// ListenAndServe serves until Shutdown; a closed-server error is not
// reported as a failure.
func (s *Server) ListenAndServe() error {
	logging.Info().Str("addr", s.srv.Addr).Msg("API server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
