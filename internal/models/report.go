// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package models

import (
	"fmt"
	"strings"
	"time"
)

// ThreatReport aggregates the threat signals of one detection pass.
// A report is produced fresh per pass and appended to a bounded rolling
// history for metrics.
type ThreatReport struct {
	ThreatsDetected       int            `json:"threats_detected"`
	HighSeverityThreats   int            `json:"high_severity_threats"`
	MediumSeverityThreats int            `json:"medium_severity_threats"`
	LowSeverityThreats    int            `json:"low_severity_threats"`
	Threats               []ThreatSignal `json:"threats"`
	AnalysisTimestamp     time.Time      `json:"analysis_timestamp"`

	// Incomplete is set when the pass was cut short by a caller deadline;
	// partial threat visibility is preferable to none.
	Incomplete bool `json:"incomplete,omitempty"`
}

// NewThreatReport builds a report from an already-ranked signal list.
func NewThreatReport(signals []ThreatSignal, at time.Time) *ThreatReport {
	r := &ThreatReport{
		ThreatsDetected:   len(signals),
		Threats:           signals,
		AnalysisTimestamp: at,
	}
	for i := range signals {
		switch signals[i].Severity {
		case SeverityHigh:
			r.HighSeverityThreats++
		case SeverityMedium:
			r.MediumSeverityThreats++
		case SeverityLow:
			r.LowSeverityThreats++
		}
	}
	return r
}

// Render produces the human-readable report: header, summary counts and a
// numbered signal list. The output is a deterministic transform of the
// report structure.
func (r *ThreatReport) Render() string {
	var b strings.Builder

	b.WriteString("CLOUD THREAT INTELLIGENCE REPORT\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Generated: %s\n", r.AnalysisTimestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Total Threats Detected: %d\n", r.ThreatsDetected)
	fmt.Fprintf(&b, "High Severity: %d\n", r.HighSeverityThreats)
	fmt.Fprintf(&b, "Medium Severity: %d\n", r.MediumSeverityThreats)
	fmt.Fprintf(&b, "Low Severity: %d\n", r.LowSeverityThreats)
	if r.Incomplete {
		b.WriteString("NOTE: pass deadline reached, report is partial\n")
	}
	b.WriteString("\nDETAILED THREAT ANALYSIS:\n\n")

	for i := range r.Threats {
		t := &r.Threats[i]
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ToUpper(string(t.Kind)))
		fmt.Fprintf(&b, "   Severity: %s\n", t.Severity)
		fmt.Fprintf(&b, "   Description: %s\n", t.Description)
		fmt.Fprintf(&b, "   Confidence: %.0f%%\n", t.Confidence*100)
		if t.Evidence.EntityID != "" {
			fmt.Fprintf(&b, "   Entity: %s\n", t.Evidence.EntityID)
		}
		b.WriteString("\n")
	}

	return b.String()
}
