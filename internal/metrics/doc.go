// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

// Package metrics provides Prometheus instrumentation for the detection
// engine: pass outcomes and latency, event acceptance, emitted threat
// signals, model training runs, report-history occupancy, transport
// consumption and webhook delivery. Metrics are exposed at /metrics in
// Prometheus text format.
package metrics
