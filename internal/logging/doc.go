// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

// Package logging provides centralized zerolog-based logging for CloudSentry.
//
// All components log through a single global zerolog instance configured at
// startup. JSON output is the production default; console output is available
// for development.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("component", "pipeline").Msg("pass complete")
//	logging.Error().Err(err).Msg("training failed")
//
//	// With context (correlation ID propagation across a detection pass)
//	logger := logging.Ctx(ctx)
//	logger.Warn().Str("entity", id).Msg("profile drift")
//
// Always terminate log chains with .Msg() or .Send(); an unterminated chain
// is silently dropped by zerolog.
package logging
