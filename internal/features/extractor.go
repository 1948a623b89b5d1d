// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package features

import (
	"errors"

	"github.com/raskell-io/cloudsentry/internal/models"
)

// Vector is one event's ordered numeric feature representation.
type Vector []float64

// FeatureNames is the canonical feature order. Every Vector produced by an
// Extractor follows this layout.
var FeatureNames = []string{
	"hour",
	"day_of_week",
	"is_weekend",
	"entity_activity_frequency",
	"event_frequency",
	"resource_access_frequency",
	"is_usual_region",
	"has_error",
	"event_name_encoded",
	"resource_type_encoded",
	"entity_id_encoded",
}

// Dim is the fixed dimensionality of extracted vectors.
var Dim = len(FeatureNames)

// ErrNotFitted is returned when Transform is called before Fit.
var ErrNotFitted = errors.New("features: extractor not fitted")

// Extractor builds feature vectors. Fit learns the categorical
// vocabularies from a training batch; Transform may then be called any
// number of times with frozen tables. Frequency statistics are always
// computed over the batch being transformed, not the training batch.
type Extractor struct {
	usualRegion string
	version     int

	eventNames    *EncodingTable
	resourceTypes *EncodingTable
	entityIDs     *EncodingTable
}

// NewExtractor creates an extractor. usualRegion may be empty, which
// disables the is_usual_region feature (always 0).
func NewExtractor(usualRegion string) *Extractor {
	return &Extractor{usualRegion: usualRegion}
}

// Fit learns the categorical encoding tables from the given events and
// bumps the table version. Any previous tables are replaced wholesale.
func (x *Extractor) Fit(events []*models.Event) {
	names := make([]string, len(events))
	resources := make([]string, len(events))
	entities := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.EventName
		resources[i] = ev.ResourceType
		entities[i] = ev.EntityID
	}

	x.version++
	x.eventNames = NewEncodingTable(x.version, names)
	x.resourceTypes = NewEncodingTable(x.version, resources)
	x.entityIDs = NewEncodingTable(x.version, entities)
}

// Fitted reports whether Fit has been called.
func (x *Extractor) Fitted() bool {
	return x.eventNames != nil
}

// Version returns the current encoding-table generation.
func (x *Extractor) Version() int {
	return x.version
}

// batchStats holds the corpus-wide frequency counts for one batch.
type batchStats struct {
	entityCount   map[string]int
	eventCount    map[string]int
	resourceCount map[string]int
}

func newBatchStats(events []*models.Event) batchStats {
	s := batchStats{
		entityCount:   make(map[string]int),
		eventCount:    make(map[string]int),
		resourceCount: make(map[string]int),
	}
	for _, ev := range events {
		s.entityCount[ev.EntityID]++
		s.eventCount[ev.EventName]++
		s.resourceCount[ev.ResourceType]++
	}
	return s
}

// Transform builds one vector per event. All vectors share the FeatureNames
// layout. Returns ErrNotFitted before the first Fit.
func (x *Extractor) Transform(events []*models.Event) ([]Vector, error) {
	if !x.Fitted() {
		return nil, ErrNotFitted
	}

	stats := newBatchStats(events)
	vectors := make([]Vector, len(events))
	for i, ev := range events {
		vectors[i] = x.vector(ev, stats)
	}
	return vectors, nil
}

func (x *Extractor) vector(ev *models.Event, stats batchStats) Vector {
	v := make(Vector, Dim)
	v[0] = float64(ev.Hour)
	v[1] = float64(ev.DayOfWeek)
	v[2] = boolFeature(ev.IsWeekend)
	v[3] = float64(stats.entityCount[ev.EntityID])
	v[4] = float64(stats.eventCount[ev.EventName])
	v[5] = float64(stats.resourceCount[ev.ResourceType])
	v[6] = boolFeature(x.usualRegion != "" && ev.Region == x.usualRegion)
	v[7] = boolFeature(ev.HasError())
	v[8] = x.eventNames.Encode(ev.EventName)
	v[9] = x.resourceTypes.Encode(ev.ResourceType)
	v[10] = x.entityIDs.Encode(ev.EntityID)
	return v
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
