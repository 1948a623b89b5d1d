// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package models

// Severity indicates the severity level of a threat signal.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Rank returns a numeric rank for ordering; higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// SignalKind identifies the class of threat a signal represents.
type SignalKind string

const (
	KindKnownMaliciousIP    SignalKind = "known_malicious_ip"
	KindSuspiciousUserAgent SignalKind = "suspicious_user_agent"
	KindCriticalOperation   SignalKind = "critical_operation"
	KindPrivilegeEscalation SignalKind = "privilege_escalation"
	KindDataExfiltration    SignalKind = "data_exfiltration"
	KindPersistence         SignalKind = "persistence"
	KindPossibleBruteForce  SignalKind = "possible_brute_force"
	KindUnusualTimeActivity SignalKind = "unusual_time_activity"
	KindGeographicAnomaly   SignalKind = "geographic_anomaly"
	KindUnusualHours        SignalKind = "unusual_hours"
	KindRareEvent           SignalKind = "rare_event"
	KindStatisticalAnomaly  SignalKind = "statistical_anomaly"
)

// SourceComponent names the engine component that emitted a signal.
type SourceComponent string

const (
	SourceAnomalyScorer SourceComponent = "anomaly_scorer"
	SourceProfileStore  SourceComponent = "profile_store"
	SourceCorrelator    SourceComponent = "pattern_correlator"
)

// Evidence captures the entity and events backing a signal.
type Evidence struct {
	EntityID string `json:"entity_id,omitempty"`

	// EventNames lists the involved event names in chronological order.
	EventNames []string `json:"event_names,omitempty"`

	// EntityCount is set by batch-wide rules whose evidence is the number
	// of distinct affected entities rather than a single identity.
	EntityCount int `json:"entity_count,omitempty"`

	// EventCount is set by threshold rules (number of matching events).
	EventCount int `json:"event_count,omitempty"`
}

// ThreatSignal is one unit of evidence produced by a rule or model.
// Signals are immutable once emitted.
type ThreatSignal struct {
	Kind        SignalKind      `json:"threat_type"`
	Severity    Severity        `json:"severity"`
	Confidence  float64         `json:"confidence"`
	Description string          `json:"description"`
	Evidence    Evidence        `json:"evidence"`
	Source      SourceComponent `json:"source_component"`
}
