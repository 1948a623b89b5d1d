// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package eventprocessor

import "fmt"

// PermanentError marks a failure that retrying cannot fix. The router's
// retry middleware still runs, but handlers use this to signal that a
// message belongs on the poison queue.
type PermanentError struct {
	msg   string
	cause error
}

// NewPermanentError wraps a cause as a permanent failure.
func NewPermanentError(msg string, cause error) *PermanentError {
	return &PermanentError{msg: msg, cause: cause}
}

func (e *PermanentError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %v", e.msg, e.cause)
}

func (e *PermanentError) Unwrap() error {
	return e.cause
}

// ErrNilEngine is returned when a handler is built without an engine.
var ErrNilEngine = NewPermanentError("detection engine required", nil)
