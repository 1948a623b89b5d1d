// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

// Package profile maintains one rolling behavioral profile per entity
// (user or service identity) and flags deviation from the stored
// baseline.
//
// A profile tracks the entity's modal active hour, its top-K frequent
// event names and resource types, and its average daily event count.
// Profiles are created on first observation, merged (never replaced) on
// every update cycle, and never deleted automatically; retention is an
// external policy.
//
// Writes are serialized per entity through sharded locking because modal
// hour and top-K recomputation are not commutative under interleaved
// partial updates. Reads observe a consistent snapshot of a profile.
package profile
