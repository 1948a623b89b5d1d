// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package correlation

import (
	"fmt"
	"sort"

	"github.com/raskell-io/cloudsentry/internal/models"
)

// sequenceSignals groups the batch by entity, orders each entity's events
// chronologically and tests every configured pattern against the ordered
// event-name list. A pattern matches when its steps appear in order,
// not necessarily contiguously.
func (c *Correlator) sequenceSignals(events []*models.Event) []models.ThreatSignal {
	byEntity := make(map[string][]*models.Event)
	for _, ev := range events {
		byEntity[ev.EntityID] = append(byEntity[ev.EntityID], ev)
	}

	// Deterministic entity iteration keeps signal order stable.
	entities := make([]string, 0, len(byEntity))
	for entity := range byEntity {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	var signals []models.ThreatSignal
	for _, entity := range entities {
		stream := byEntity[entity]
		sort.SliceStable(stream, func(i, j int) bool {
			return stream[i].Timestamp.Before(stream[j].Timestamp)
		})

		names := make([]string, len(stream))
		for i, ev := range stream {
			names[i] = ev.EventName
		}

		for _, pattern := range c.cfg.SequencePatterns {
			if isSubsequence(pattern.Steps, names) {
				signals = append(signals, models.ThreatSignal{
					Kind:       pattern.Kind,
					Severity:   pattern.Severity,
					Confidence: pattern.Confidence,
					Description: fmt.Sprintf(
						"Suspicious pattern detected: %s", pattern.Kind),
					Evidence: models.Evidence{
						EntityID:   entity,
						EventNames: append([]string(nil), pattern.Steps...),
					},
					Source: models.SourceCorrelator,
				})
			}
		}
	}

	return signals
}

// isSubsequence reports whether steps appears as an ordered, not
// necessarily contiguous, subsequence of names.
func isSubsequence(steps, names []string) bool {
	if len(steps) == 0 {
		return false
	}
	next := 0
	for _, name := range names {
		if name == steps[next] {
			next++
			if next == len(steps) {
				return true
			}
		}
	}
	return false
}
