// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package profile

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/raskell-io/cloudsentry/internal/models"
)

func eventAt(entity, name string, hour int, day int) *models.Event {
	return &models.Event{
		Timestamp:    time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC),
		EntityID:     entity,
		EventName:    name,
		SourceIP:     "192.0.2.1",
		ResourceType: "ec2",
		Region:       "us-east-1",
		Hour:         hour,
	}
}

func TestEvaluateColdStart(t *testing.T) {
	s := NewStore(DefaultConfig())
	signals := s.Evaluate("ghost", eventAt("ghost", "DescribeInstances", 9, 1))
	if len(signals) != 0 {
		t.Fatalf("cold start must return empty signal list, got %d signals", len(signals))
	}
}

func TestUnusualHoursRule(t *testing.T) {
	s := NewStore(DefaultConfig())

	var history []*models.Event
	for i := 0; i < 10; i++ {
		history = append(history, eventAt("dev", "DescribeInstances", 9, 1+i%3))
	}
	s.Update("dev", history)

	tests := []struct {
		name     string
		hour     int
		wantFlag bool
	}{
		{"modal hour itself", 9, false},
		{"inside tolerance", 13, false}, // distance exactly 4, strict >
		{"outside tolerance", 14, true},
		{"circular wrap", 3, true}, // 9 -> 3 is 6 apart
		{"just inside wrap", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := s.Evaluate("dev", eventAt("dev", "DescribeInstances", tt.hour, 10))
			got := hasKind(signals, models.KindUnusualHours)
			if got != tt.wantFlag {
				t.Errorf("hour %d: flagged=%v, want %v", tt.hour, got, tt.wantFlag)
			}
		})
	}
}

func TestUnusualHoursSignalShape(t *testing.T) {
	s := NewStore(DefaultConfig())
	s.Update("dev", []*models.Event{eventAt("dev", "DescribeInstances", 9, 1)})

	signals := s.Evaluate("dev", eventAt("dev", "DescribeInstances", 2, 2))
	sig, ok := findKind(signals, models.KindUnusualHours)
	if !ok {
		t.Fatal("expected unusual-hours signal")
	}
	if sig.Severity != models.SeverityMedium {
		t.Errorf("severity = %s, want MEDIUM", sig.Severity)
	}
	if sig.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", sig.Confidence)
	}
	if sig.Source != models.SourceProfileStore {
		t.Errorf("source = %s", sig.Source)
	}
}

func TestRareEventRule(t *testing.T) {
	s := NewStore(DefaultConfig())

	// Six distinct event names; with TopK=5 the least frequent drops out.
	var history []*models.Event
	for name, count := range map[string]int{
		"A": 10, "B": 9, "C": 8, "D": 7, "E": 6, "F": 1,
	} {
		for i := 0; i < count; i++ {
			history = append(history, eventAt("dev", name, 9, 1))
		}
	}
	s.Update("dev", history)

	if signals := s.Evaluate("dev", eventAt("dev", "A", 9, 2)); hasKind(signals, models.KindRareEvent) {
		t.Error("frequent event flagged as rare")
	}

	signals := s.Evaluate("dev", eventAt("dev", "F", 9, 2))
	sig, ok := findKind(signals, models.KindRareEvent)
	if !ok {
		t.Fatal("event outside top-K must be flagged rare")
	}
	if sig.Severity != models.SeverityLow || sig.Confidence != 0.7 {
		t.Errorf("signal = %s/%v, want LOW/0.7", sig.Severity, sig.Confidence)
	}
}

func TestUpdateMergesProfiles(t *testing.T) {
	s := NewStore(DefaultConfig())

	s.Update("dev", []*models.Event{
		eventAt("dev", "GetObject", 9, 1),
		eventAt("dev", "GetObject", 9, 1),
	})
	s.Update("dev", []*models.Event{
		eventAt("dev", "PutObject", 10, 2),
		eventAt("dev", "PutObject", 10, 2),
		eventAt("dev", "PutObject", 10, 2),
	})

	snap, ok := s.Snapshot("dev")
	if !ok {
		t.Fatal("expected profile")
	}
	if snap.TotalEvents != 5 {
		t.Errorf("TotalEvents = %d, want 5 (updates must merge, not replace)", snap.TotalEvents)
	}
	if snap.ModalHour != 10 {
		t.Errorf("ModalHour = %d, want 10", snap.ModalHour)
	}
	// 5 events across 2 distinct days.
	if snap.AvgDailyEvents != 2.5 {
		t.Errorf("AvgDailyEvents = %v, want 2.5", snap.AvgDailyEvents)
	}
	if len(snap.TopEvents) == 0 || snap.TopEvents[0].Name != "PutObject" {
		t.Errorf("TopEvents = %v, want PutObject first", snap.TopEvents)
	}
}

func TestSnapshotUnknownEntity(t *testing.T) {
	s := NewStore(DefaultConfig())
	if _, ok := s.Snapshot("nobody"); ok {
		t.Fatal("unknown entity must not have a snapshot")
	}
}

func TestConcurrentUpdatesSerializePerEntity(t *testing.T) {
	s := NewStore(DefaultConfig())

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				entity := fmt.Sprintf("svc-%d", w%2)
				s.Update(entity, []*models.Event{eventAt(entity, "GetObject", 9, 1)})
				s.Evaluate(entity, eventAt(entity, "PutObject", 3, 1))
			}
		}(w)
	}
	wg.Wait()

	snap0, _ := s.Snapshot("svc-0")
	snap1, _ := s.Snapshot("svc-1")
	if snap0.TotalEvents+snap1.TotalEvents != workers*perWorker {
		t.Errorf("lost updates: %d + %d != %d",
			snap0.TotalEvents, snap1.TotalEvents, workers*perWorker)
	}
	if s.Entities() != 2 {
		t.Errorf("Entities() = %d, want 2", s.Entities())
	}
}

func TestCircularHourDistance(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{9, 9, 0},
		{9, 13, 4},
		{23, 1, 2},
		{0, 12, 12},
		{1, 23, 2},
		{0, 23, 1},
	}
	for _, tt := range tests {
		if got := circularHourDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("circularHourDistance(%d,%d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func hasKind(signals []models.ThreatSignal, kind models.SignalKind) bool {
	_, ok := findKind(signals, kind)
	return ok
}

func findKind(signals []models.ThreatSignal, kind models.SignalKind) (models.ThreatSignal, bool) {
	for _, s := range signals {
		if s.Kind == kind {
			return s, true
		}
	}
	return models.ThreatSignal{}, false
}
