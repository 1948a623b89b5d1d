// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

// Package config loads and validates CloudSentry configuration.
//
// Configuration is layered with Koanf v2, in increasing precedence:
//
//  1. Built-in defaults (structs provider)
//  2. Optional YAML config file (CONFIG_PATH or well-known paths)
//  3. Environment variables (CLOUDSENTRY_ prefix, e.g.
//     CLOUDSENTRY_DETECTION_ENSEMBLE_SIZE -> detection.ensemble_size)
//
// Every detection parameter is validated at load time; out-of-range values
// fail with a *ConfigurationError before any event data is processed.
package config
