// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func sampleSignals() []ThreatSignal {
	return []ThreatSignal{
		{
			Kind:        KindKnownMaliciousIP,
			Severity:    SeverityHigh,
			Confidence:  0.95,
			Description: "Activity from known malicious IP: 203.0.113.5",
			Evidence:    Evidence{EntityID: "u1", EventNames: []string{"CreateUser"}},
			Source:      SourceCorrelator,
		},
		{
			Kind:        KindRareEvent,
			Severity:    SeverityLow,
			Confidence:  0.7,
			Description: "Event outside entity's frequent set",
			Evidence:    Evidence{EntityID: "u2"},
			Source:      SourceProfileStore,
		},
	}
}

func TestNewThreatReportCounts(t *testing.T) {
	r := NewThreatReport(sampleSignals(), time.Now())

	if r.ThreatsDetected != 2 {
		t.Errorf("ThreatsDetected = %d, want 2", r.ThreatsDetected)
	}
	if r.HighSeverityThreats != 1 || r.MediumSeverityThreats != 0 || r.LowSeverityThreats != 1 {
		t.Errorf("severity counts = %d/%d/%d, want 1/0/1",
			r.HighSeverityThreats, r.MediumSeverityThreats, r.LowSeverityThreats)
	}
}

func TestThreatReportJSONKeys(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewThreatReport(sampleSignals(), at)

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for _, key := range []string{
		`"threats_detected"`, `"high_severity_threats"`, `"medium_severity_threats"`,
		`"threats"`, `"analysis_timestamp"`, `"threat_type"`, `"severity"`,
		`"description"`, `"confidence"`, `"evidence"`,
	} {
		if !strings.Contains(string(data), key) {
			t.Errorf("serialized report missing key %s", key)
		}
	}
	if !strings.Contains(string(data), "2026-01-02T03:04:05Z") {
		t.Errorf("expected ISO-8601 timestamp, got %s", data)
	}
}

func TestRenderDeterministic(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewThreatReport(sampleSignals(), at)

	first := r.Render()
	second := r.Render()
	if first != second {
		t.Fatal("Render must be deterministic for the same report")
	}

	for _, want := range []string{
		"CLOUD THREAT INTELLIGENCE REPORT",
		"Total Threats Detected: 2",
		"High Severity: 1",
		"1. KNOWN_MALICIOUS_IP",
		"Confidence: 95%",
		"Entity: u1",
	} {
		if !strings.Contains(first, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
}

func TestRenderIncompleteNote(t *testing.T) {
	r := NewThreatReport(nil, time.Now())
	r.Incomplete = true
	if !strings.Contains(r.Render(), "partial") {
		t.Error("incomplete report must carry a partial-pass note")
	}
}
