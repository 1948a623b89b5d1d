// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

// Package models defines the data contracts shared across the detection
// engine: the normalized security Event consumed from the ingest stage,
// the ThreatSignal emitted by scorers and rules, and the ThreatReport
// aggregate produced by one detection pass.
//
// Events are immutable once created by the normalization stage. The core
// never mutates an Event; derived output (anomaly score, confidence) is
// carried alongside in ScoredEvent.
package models
