// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package profile

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/raskell-io/cloudsentry/internal/models"
)

// shardCount is the number of lock shards. Entities map to shards by FNV
// hash; updates for one entity always serialize on the same shard.
const shardCount = 32

// Config holds the behavioral rule parameters.
type Config struct {
	// UnusualHoursTolerance is the circular 24h distance from the modal
	// hour beyond which an event is flagged (strict >).
	UnusualHoursTolerance int

	// UnusualHoursConfidence is attached to unusual-hours signals.
	UnusualHoursConfidence float64

	// RareEventConfidence is attached to rare-event signals.
	RareEventConfidence float64

	// TopK bounds the frequent event/resource tables.
	TopK int
}

// DefaultConfig mirrors the thresholds the rules were tuned with.
func DefaultConfig() Config {
	return Config{
		UnusualHoursTolerance:  4,
		UnusualHoursConfidence: 0.8,
		RareEventConfidence:    0.7,
		TopK:                   5,
	}
}

// FrequencyEntry is one name/count pair in a top-K table.
type FrequencyEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Snapshot is a consistent, read-only view of one entity's profile.
type Snapshot struct {
	EntityID       string           `json:"entity_id"`
	ModalHour      int              `json:"modal_hour"`
	TopEvents      []FrequencyEntry `json:"top_events"`
	TopResources   []FrequencyEntry `json:"top_resources"`
	AvgDailyEvents float64          `json:"avg_daily_events"`
	TotalEvents    int              `json:"total_events"`
}

// entityState is the mutable per-entity accumulator behind a snapshot.
type entityState struct {
	hourCounts     [24]int
	eventCounts    map[string]int
	resourceCounts map[string]int
	dayCounts      map[string]int
	totalEvents    int

	// Derived on every update so reads never recompute under lock.
	modalHour      int
	topEvents      []FrequencyEntry
	topResources   []FrequencyEntry
	avgDailyEvents float64
}

type shard struct {
	mu       sync.RWMutex
	entities map[string]*entityState
}

// Store is the behavioral profile store.
type Store struct {
	cfg    Config
	shards [shardCount]*shard
}

// NewStore creates an empty profile store.
func NewStore(cfg Config) *Store {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	s := &Store{cfg: cfg}
	for i := range s.shards {
		s.shards[i] = &shard{entities: make(map[string]*entityState)}
	}
	return s
}

func (s *Store) shardFor(entityID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(entityID))
	return s.shards[h.Sum32()%shardCount]
}

// Update merges new observations into the entity's stored profile,
// recomputing the modal hour, refreshing the top-K frequency tables and
// updating the day-bucketed daily-average counter. The profile is created
// on first observation.
func (s *Store) Update(entityID string, events []*models.Event) {
	if len(events) == 0 {
		return
	}

	sh := s.shardFor(entityID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.entities[entityID]
	if !ok {
		st = &entityState{
			eventCounts:    make(map[string]int),
			resourceCounts: make(map[string]int),
			dayCounts:      make(map[string]int),
		}
		sh.entities[entityID] = st
	}

	for _, ev := range events {
		if ev.Hour >= 0 && ev.Hour < 24 {
			st.hourCounts[ev.Hour]++
		}
		st.eventCounts[ev.EventName]++
		st.resourceCounts[ev.ResourceType]++
		st.dayCounts[ev.Timestamp.UTC().Format("2006-01-02")]++
		st.totalEvents++
	}

	st.recompute(s.cfg.TopK)
}

// recompute refreshes the derived fields; caller holds the shard lock.
func (st *entityState) recompute(topK int) {
	modal, best := 0, -1
	for hour, count := range st.hourCounts {
		// Ties resolve to the earliest hour for determinism.
		if count > best {
			modal, best = hour, count
		}
	}
	st.modalHour = modal

	st.topEvents = topEntries(st.eventCounts, topK)
	st.topResources = topEntries(st.resourceCounts, topK)

	if days := len(st.dayCounts); days > 0 {
		st.avgDailyEvents = float64(st.totalEvents) / float64(days)
	}
}

// topEntries returns the K most frequent entries, count descending, name
// ascending on ties.
func topEntries(counts map[string]int, k int) []FrequencyEntry {
	entries := make([]FrequencyEntry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, FrequencyEntry{Name: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > k {
		entries = entries[:k]
	}
	return entries
}

// Evaluate compares one event against the entity's stored baseline and
// returns any deviation signals. An entity with no profile yet returns an
// empty list, not an error; cold start is expected.
func (s *Store) Evaluate(entityID string, event *models.Event) []models.ThreatSignal {
	sh := s.shardFor(entityID)
	sh.mu.RLock()
	st, ok := sh.entities[entityID]
	if !ok {
		sh.mu.RUnlock()
		return nil
	}
	modalHour := st.modalHour
	topEvents := st.topEvents
	sh.mu.RUnlock()

	var signals []models.ThreatSignal

	if circularHourDistance(event.Hour, modalHour) > s.cfg.UnusualHoursTolerance {
		signals = append(signals, models.ThreatSignal{
			Kind:     models.KindUnusualHours,
			Severity: models.SeverityMedium,
			Confidence: s.cfg.UnusualHoursConfidence,
			Description: fmt.Sprintf(
				"Activity at hour %02d outside usual hour %02d for entity %s",
				event.Hour, modalHour, entityID),
			Evidence: models.Evidence{EntityID: entityID, EventNames: []string{event.EventName}},
			Source:   models.SourceProfileStore,
		})
	}

	if !containsEntry(topEvents, event.EventName) {
		signals = append(signals, models.ThreatSignal{
			Kind:     models.KindRareEvent,
			Severity: models.SeverityLow,
			Confidence: s.cfg.RareEventConfidence,
			Description: fmt.Sprintf(
				"Event %s outside frequent set for entity %s", event.EventName, entityID),
			Evidence: models.Evidence{EntityID: entityID, EventNames: []string{event.EventName}},
			Source:   models.SourceProfileStore,
		})
	}

	return signals
}

// Snapshot returns a consistent copy of the entity's profile, or false
// when the entity is unknown.
func (s *Store) Snapshot(entityID string) (Snapshot, bool) {
	sh := s.shardFor(entityID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	st, ok := sh.entities[entityID]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		EntityID:       entityID,
		ModalHour:      st.modalHour,
		TopEvents:      append([]FrequencyEntry(nil), st.topEvents...),
		TopResources:   append([]FrequencyEntry(nil), st.topResources...),
		AvgDailyEvents: st.avgDailyEvents,
		TotalEvents:    st.totalEvents,
	}, true
}

// Entities returns the number of profiled entities.
func (s *Store) Entities() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.entities)
		sh.mu.RUnlock()
	}
	return total
}

// circularHourDistance is the distance between two hours on a 24-hour
// clock (23 and 01 are 2 apart, not 22).
func circularHourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return d
}

func containsEntry(entries []FrequencyEntry, name string) bool {
	for _, e := range entries {
		if e.Name == name {
			return true
		}
	}
	return false
}
