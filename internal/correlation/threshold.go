// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package correlation

import (
	"fmt"

	"github.com/raskell-io/cloudsentry/internal/models"
)

// offHoursEnd is the last hour (inclusive) of the off-hours window
// [0, offHoursEnd] used by the unusual-time-activity rule.
const offHoursEnd = 5

// thresholdSignals evaluates the batch-wide counting rules. Every
// threshold comparison is strict > — a count exactly at the threshold
// does not trigger.
func (c *Correlator) thresholdSignals(events []*models.Event) []models.ThreatSignal {
	var signals []models.ThreatSignal

	errorCount := 0
	errorEntities := make(map[string]struct{})
	offHours := 0
	regions := make(map[string]struct{})

	for _, ev := range events {
		if ev.HasError() {
			errorCount++
			errorEntities[ev.EntityID] = struct{}{}
		}
		if ev.Hour >= 0 && ev.Hour <= offHoursEnd {
			offHours++
		}
		regions[ev.Region] = struct{}{}
	}

	if errorCount > c.cfg.BruteForceThreshold {
		signals = append(signals, models.ThreatSignal{
			Kind:        models.KindPossibleBruteForce,
			Severity:    models.SeverityHigh,
			Confidence:  c.cfg.BruteForceConfidence,
			Description: fmt.Sprintf("Multiple failed authentication attempts: %d", errorCount),
			Evidence: models.Evidence{
				EntityCount: len(errorEntities),
				EventCount:  errorCount,
			},
			Source: models.SourceCorrelator,
		})
	}

	if offHours > c.cfg.OffHoursThreshold {
		signals = append(signals, models.ThreatSignal{
			Kind:        models.KindUnusualTimeActivity,
			Severity:    models.SeverityMedium,
			Confidence:  c.cfg.OffHoursConfidence,
			Description: fmt.Sprintf("Unusual activity during off-hours: %d events", offHours),
			Evidence:    models.Evidence{EventCount: offHours},
			Source:      models.SourceCorrelator,
		})
	}

	if len(regions) > c.cfg.RegionThreshold {
		signals = append(signals, models.ThreatSignal{
			Kind:        models.KindGeographicAnomaly,
			Severity:    models.SeverityMedium,
			Confidence:  c.cfg.GeoAnomalyConfidence,
			Description: fmt.Sprintf("Activity from multiple regions: %d", len(regions)),
			Evidence:    models.Evidence{EventCount: len(regions)},
			Source:      models.SourceCorrelator,
		})
	}

	return signals
}
