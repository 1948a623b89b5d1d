// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package correlation

import (
	"strings"

	"github.com/raskell-io/cloudsentry/internal/logging"
	"github.com/raskell-io/cloudsentry/internal/models"
)

// SequencePattern is an ordered event-name subsequence with its signal
// classification.
type SequencePattern struct {
	Kind       models.SignalKind
	Steps      []string
	Severity   models.Severity
	Confidence float64
}

// Config holds the static rule tables and thresholds.
type Config struct {
	KnownMaliciousIPs    []string
	SuspiciousUserAgents []string
	CriticalOperations   []string
	SequencePatterns     []SequencePattern

	MaliciousIPConfidence float64
	UserAgentConfidence   float64
	CriticalOpConfidence  float64

	// Threshold rules; all comparisons are strict >.
	BruteForceThreshold  int
	OffHoursThreshold    int
	RegionThreshold      int
	BruteForceConfidence float64
	OffHoursConfidence   float64
	GeoAnomalyConfidence float64
}

// DefaultConfig returns the built-in threat-intelligence tables.
func DefaultConfig() Config {
	return Config{
		KnownMaliciousIPs:    []string{"192.168.1.100", "10.0.0.50"},
		SuspiciousUserAgents: []string{"nmap", "sqlmap", "metasploit"},
		CriticalOperations: []string{
			"CreateUser", "DeleteUser", "ModifySecurityGroup",
			"CreateAccessKey", "DeleteLogGroup", "StopLogging",
			"AttachUserPolicy",
		},
		SequencePatterns: []SequencePattern{
			{Kind: models.KindPrivilegeEscalation, Steps: []string{"CreateUser", "CreateAccessKey"}, Severity: models.SeverityHigh, Confidence: 0.80},
			{Kind: models.KindDataExfiltration, Steps: []string{"GetObject", "CopyObject"}, Severity: models.SeverityHigh, Confidence: 0.80},
			{Kind: models.KindDataExfiltration, Steps: []string{"ListBuckets", "GetObject"}, Severity: models.SeverityHigh, Confidence: 0.80},
			{Kind: models.KindPersistence, Steps: []string{"CreateTrail", "StopLogging"}, Severity: models.SeverityMedium, Confidence: 0.80},
			{Kind: models.KindPersistence, Steps: []string{"CreateAlarm", "DeleteAlarm"}, Severity: models.SeverityMedium, Confidence: 0.80},
		},
		MaliciousIPConfidence: 0.95,
		UserAgentConfidence:   0.75,
		CriticalOpConfidence:  0.85,
		BruteForceThreshold:   10,
		OffHoursThreshold:     5,
		RegionThreshold:       3,
		BruteForceConfidence:  0.90,
		OffHoursConfidence:    0.70,
		GeoAnomalyConfidence:  0.65,
	}
}

// Correlator evaluates the rule tables over event batches.
type Correlator struct {
	cfg Config

	maliciousIPs map[string]struct{}
	criticalOps  map[string]struct{}
	// Lowercased once at construction; user-agent matching is
	// case-insensitive substring search.
	suspiciousAgents []string
}

// NewCorrelator builds a correlator from the given rule tables.
func NewCorrelator(cfg Config) *Correlator {
	c := &Correlator{
		cfg:          cfg,
		maliciousIPs: make(map[string]struct{}, len(cfg.KnownMaliciousIPs)),
		criticalOps:  make(map[string]struct{}, len(cfg.CriticalOperations)),
	}
	for _, ip := range cfg.KnownMaliciousIPs {
		c.maliciousIPs[ip] = struct{}{}
	}
	for _, op := range cfg.CriticalOperations {
		c.criticalOps[op] = struct{}{}
	}
	for _, ua := range cfg.SuspiciousUserAgents {
		c.suspiciousAgents = append(c.suspiciousAgents, strings.ToLower(ua))
	}
	return c
}

// Correlate applies every rule class to the batch and returns the merged
// signal list. Each rule class is isolated: a panic inside one is logged
// and the remaining rules still run.
func (c *Correlator) Correlate(events []*models.Event) []models.ThreatSignal {
	if len(events) == 0 {
		return nil
	}

	var signals []models.ThreatSignal
	rules := []struct {
		name string
		fn   func([]*models.Event) []models.ThreatSignal
	}{
		{"signature", c.signatureSignals},
		{"sequence", c.sequenceSignals},
		{"threshold", c.thresholdSignals},
	}

	for _, rule := range rules {
		out, ok := runIsolated(rule.name, rule.fn, events)
		if ok {
			signals = append(signals, out...)
		}
	}
	return signals
}

// runIsolated executes one rule class, converting a panic into a logged
// skip so one malformed rule cannot take down the whole pass.
func runIsolated(
	name string,
	fn func([]*models.Event) []models.ThreatSignal,
	events []*models.Event,
) (signals []models.ThreatSignal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Str("rule", name).
				Interface("panic", r).
				Msg("correlation rule failed, continuing with remaining rules")
			signals, ok = nil, false
		}
	}()
	return fn(events), true
}
