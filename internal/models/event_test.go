// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package models

import (
	"errors"
	"testing"
	"time"
)

func validEvent() Event {
	return Event{
		Timestamp:    time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		EntityID:     "developer",
		EventName:    "DescribeInstances",
		SourceIP:     "192.0.2.10",
		ResourceType: "ec2",
		Region:       "us-east-1",
	}
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Event)
		wantField string
	}{
		{"valid", func(e *Event) {}, ""},
		{"missing timestamp", func(e *Event) { e.Timestamp = time.Time{} }, "timestamp"},
		{"missing entity", func(e *Event) { e.EntityID = "" }, "entity_id"},
		{"missing event name", func(e *Event) { e.EventName = "" }, "event_name"},
		{"missing source ip", func(e *Event) { e.SourceIP = "" }, "source_ip"},
		{"missing resource type", func(e *Event) { e.ResourceType = "" }, "resource_type"},
		{"missing region", func(e *Event) { e.Region = "" }, "region"},
		{"optional error code", func(e *Event) { e.ErrorCode = "" }, ""},
		{"optional user agent", func(e *Event) { e.UserAgent = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validEvent()
			tt.mutate(&ev)
			err := ev.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid event, got %v", err)
				}
				return
			}
			var invalid *InvalidFeatureError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidFeatureError, got %v", err)
			}
			if invalid.Field != tt.wantField {
				t.Errorf("field = %q, want %q", invalid.Field, tt.wantField)
			}
		})
	}
}

func TestDeriveTimeFeatures(t *testing.T) {
	tests := []struct {
		name        string
		ts          time.Time
		wantHour    int
		wantDay     int
		wantWeekend bool
	}{
		// 2026-03-14 is a Saturday.
		{"saturday morning", time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), 9, 5, true},
		// 2026-03-16 is a Monday.
		{"monday midnight", time.Date(2026, 3, 16, 0, 15, 0, 0, time.UTC), 0, 0, false},
		// 2026-03-15 is a Sunday.
		{"sunday night", time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC), 23, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Event{Timestamp: tt.ts}.DeriveTimeFeatures()
			if ev.Hour != tt.wantHour {
				t.Errorf("Hour = %d, want %d", ev.Hour, tt.wantHour)
			}
			if ev.DayOfWeek != tt.wantDay {
				t.Errorf("DayOfWeek = %d, want %d", ev.DayOfWeek, tt.wantDay)
			}
			if ev.IsWeekend != tt.wantWeekend {
				t.Errorf("IsWeekend = %v, want %v", ev.IsWeekend, tt.wantWeekend)
			}
		})
	}
}

func TestSeverityRank(t *testing.T) {
	if SeverityHigh.Rank() <= SeverityMedium.Rank() {
		t.Error("HIGH must outrank MEDIUM")
	}
	if SeverityMedium.Rank() <= SeverityLow.Rank() {
		t.Error("MEDIUM must outrank LOW")
	}
	if Severity("bogus").Rank() != 0 {
		t.Error("unknown severity must rank 0")
	}
}
