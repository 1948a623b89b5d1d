// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

// Package correlation applies signature, threshold and ordered-sequence
// rules over a batch of normalized events.
//
// Correlate is a pure function of the batch: the correlator carries no
// state beyond its static rule tables. Sequence matching works on
// tokenized event-name lists with an explicit ordered-subsequence
// matcher; no regex is ever built from event names, so free-form names
// cannot inject or bend a pattern.
//
// Rule evaluation is isolated per rule: a failure (panic or malformed
// data) in one rule is logged and must not prevent the other rules in
// the same pass from running.
package correlation
