// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

// Package eventprocessor provides the NATS JetStream event transport:
// a Watermill router with retry and poison-queue middleware, a durable
// batching consumer that feeds the detection engine, and a publisher for
// the resulting threat reports. An embedded NATS server is available for
// standalone deployments.
package eventprocessor
