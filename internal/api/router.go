// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

// Package api provides HTTP routing for the detection engine's advisory
// read and detect endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raskell-io/cloudsentry/internal/metrics"
)

// RouterConfig holds routing-level settings.
type RouterConfig struct {
	// RateLimitPerMin caps requests per client IP per minute on the API
	// routes; 0 disables rate limiting.
	RateLimitPerMin int
}

// NewRouter assembles the chi router: request ID, real IP and panic
// recovery globally, per-IP rate limiting and Prometheus instrumentation
// on the API routes, plus the /metrics and health endpoints.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitPerMin > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
		}
		r.Use(prometheusMetrics)

		r.Get("/report/latest", h.LatestReport)
		r.Get("/reports", h.Reports)
		r.Get("/reports/metrics", h.MonitorMetrics)
		r.Get("/profiles/{entityID}", h.Profile)
		r.Get("/train/summary", h.TrainSummary)
		r.Post("/detect", h.Detect)
		r.Post("/train", h.Train)
	})

	return r
}

// prometheusMetrics records request counts and latency per endpoint.
func prometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = r.URL.Path
		}
		metrics.RecordHTTPRequest(r.Method, endpoint, ww.Status(), time.Since(start))
	})
}
