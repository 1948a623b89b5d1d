// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package correlation

import (
	"fmt"
	"strings"

	"github.com/raskell-io/cloudsentry/internal/models"
)

// signatureSignals checks every event against the static per-event
// tables: known-malicious source IPs, suspicious user-agent substrings
// and critical operation names.
func (c *Correlator) signatureSignals(events []*models.Event) []models.ThreatSignal {
	var signals []models.ThreatSignal

	for _, ev := range events {
		if _, bad := c.maliciousIPs[ev.SourceIP]; bad {
			signals = append(signals, models.ThreatSignal{
				Kind:        models.KindKnownMaliciousIP,
				Severity:    models.SeverityHigh,
				Confidence:  c.cfg.MaliciousIPConfidence,
				Description: fmt.Sprintf("Activity from known malicious IP: %s", ev.SourceIP),
				Evidence:    models.Evidence{EntityID: ev.EntityID, EventNames: []string{ev.EventName}},
				Source:      models.SourceCorrelator,
			})
		}

		if agent := strings.ToLower(ev.UserAgent); agent != "" {
			for _, suspicious := range c.suspiciousAgents {
				if strings.Contains(agent, suspicious) {
					signals = append(signals, models.ThreatSignal{
						Kind:        models.KindSuspiciousUserAgent,
						Severity:    models.SeverityMedium,
						Confidence:  c.cfg.UserAgentConfidence,
						Description: fmt.Sprintf("Suspicious user agent detected: %s", suspicious),
						Evidence:    models.Evidence{EntityID: ev.EntityID, EventNames: []string{ev.EventName}},
						Source:      models.SourceCorrelator,
					})
				}
			}
		}

		if _, critical := c.criticalOps[ev.EventName]; critical {
			signals = append(signals, models.ThreatSignal{
				Kind:        models.KindCriticalOperation,
				Severity:    models.SeverityHigh,
				Confidence:  c.cfg.CriticalOpConfidence,
				Description: fmt.Sprintf("Critical security operation detected: %s", ev.EventName),
				Evidence:    models.Evidence{EntityID: ev.EntityID, EventNames: []string{ev.EventName}},
				Source:      models.SourceCorrelator,
			})
		}
	}

	return signals
}
