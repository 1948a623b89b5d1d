// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

// Package features turns normalized events into the fixed-order numeric
// vectors the anomaly scorer consumes.
//
// A vector combines per-event time features, corpus-wide frequency
// statistics computed over the current batch, and label-encoded
// categorical fields. Categorical encoding uses an explicit, versioned
// table fit at train time; values unseen at scoring time map to a
// reserved sentinel bucket instead of mutating the table.
//
// Invariant: every vector produced in one scoring pass has the same
// dimensionality and feature ordering.
package features
