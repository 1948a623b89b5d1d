// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package models

import (
	"fmt"
	"time"
)

// Event is a normalized security-event record produced by the ingest
// stage. All fields except ErrorCode and UserAgent are required.
//
// Hour, DayOfWeek and IsWeekend are derived from Timestamp at
// normalization time so that feature extraction and the correlation rules
// agree on the same clock arithmetic.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	EntityID     string    `json:"entity_id"`
	EventName    string    `json:"event_name"`
	SourceIP     string    `json:"source_ip"`
	UserAgent    string    `json:"user_agent,omitempty"`
	ResourceType string    `json:"resource_type"`
	Region       string    `json:"region"`
	ErrorCode    string    `json:"error_code,omitempty"`

	// Derived time features.
	Hour      int  `json:"hour"`
	DayOfWeek int  `json:"day_of_week"`
	IsWeekend bool `json:"is_weekend"`
}

// HasError reports whether the event carries a provider error code
// (failed call, access denied, and so on).
func (e *Event) HasError() bool {
	return e.ErrorCode != ""
}

// InvalidFeatureError indicates an event is missing a required field.
// The offending event is rejected and logged; the rest of the batch
// proceeds.
type InvalidFeatureError struct {
	Field string
}

func (e *InvalidFeatureError) Error() string {
	return fmt.Sprintf("event missing required field %q", e.Field)
}

// Validate checks that all required fields are present. ErrorCode and
// UserAgent may be absent.
func (e *Event) Validate() error {
	switch {
	case e.Timestamp.IsZero():
		return &InvalidFeatureError{Field: "timestamp"}
	case e.EntityID == "":
		return &InvalidFeatureError{Field: "entity_id"}
	case e.EventName == "":
		return &InvalidFeatureError{Field: "event_name"}
	case e.SourceIP == "":
		return &InvalidFeatureError{Field: "source_ip"}
	case e.ResourceType == "":
		return &InvalidFeatureError{Field: "resource_type"}
	case e.Region == "":
		return &InvalidFeatureError{Field: "region"}
	}
	return nil
}

// DeriveTimeFeatures returns a copy of the event with Hour, DayOfWeek and
// IsWeekend populated from Timestamp (UTC). The receiver is not modified.
func (e Event) DeriveTimeFeatures() Event {
	ts := e.Timestamp.UTC()
	e.Hour = ts.Hour()
	// Monday=0 .. Sunday=6, matching the ingest contract.
	e.DayOfWeek = (int(ts.Weekday()) + 6) % 7
	e.IsWeekend = e.DayOfWeek >= 5
	return e
}

// ScoredEvent pairs an event with its anomaly-scoring output. The
// underlying event is shared, never copied or mutated.
type ScoredEvent struct {
	Event      *Event  `json:"event"`
	Score      float64 `json:"anomaly_score"`
	Confidence float64 `json:"anomaly_confidence"`
}
