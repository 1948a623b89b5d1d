// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

// Package anomaly implements the unsupervised outlier scorer: an ensemble
// of random partition trees built over feature vectors.
//
// Each tree recursively splits a random subsample on a random feature at
// a random threshold. Outliers isolate in few splits, so a short average
// path length across the ensemble marks a vector as anomalous. Scores are
// normalized to (0,1]: values near 1 indicate strong outliers, values
// near 0.5 typical density.
//
// Training is deterministic for a fixed seed, subsample size and input
// order. That is a correctness requirement (test reproducibility), not an
// incidental property; all randomness flows from one seeded source.
package anomaly
