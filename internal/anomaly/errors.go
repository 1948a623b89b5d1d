// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package anomaly

import "errors"

var (
	// ErrEmptyInput is returned when train or score is called with no
	// vectors. Recoverable: the caller should skip the pass.
	ErrEmptyInput = errors.New("anomaly: empty input")

	// ErrUntrainedModel is returned when scoring is requested before any
	// successful train. Fatal to the pass, not to the process.
	ErrUntrainedModel = errors.New("anomaly: model not trained")

	// ErrDimensionMismatch is returned when a query vector's
	// dimensionality differs from the training layout.
	ErrDimensionMismatch = errors.New("anomaly: vector dimensionality mismatch")
)
