// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package features

import (
	"math"
	"testing"
	"time"

	"github.com/raskell-io/cloudsentry/internal/models"
)

func makeEvent(entity, name, resource, region string, hour int) *models.Event {
	return &models.Event{
		Timestamp:    time.Date(2026, 3, 16, hour, 0, 0, 0, time.UTC),
		EntityID:     entity,
		EventName:    name,
		SourceIP:     "192.0.2.1",
		ResourceType: resource,
		Region:       region,
		Hour:         hour,
	}
}

func TestEncodingTableDeterministicAndSentinel(t *testing.T) {
	a := NewEncodingTable(1, []string{"PutObject", "GetObject", "PutObject", "ListBuckets"})
	b := NewEncodingTable(1, []string{"ListBuckets", "PutObject", "GetObject"})

	for _, v := range []string{"GetObject", "ListBuckets", "PutObject"} {
		if a.Encode(v) != b.Encode(v) {
			t.Errorf("encoding of %q differs across identically-fitted tables", v)
		}
		if a.Encode(v) == SentinelBucket {
			t.Errorf("known value %q must not map to the sentinel", v)
		}
	}

	if got := a.Encode("DeleteBucket"); got != SentinelBucket {
		t.Errorf("unseen value encoded to %v, want sentinel %d", got, SentinelBucket)
	}
	if a.Size() != 3 {
		t.Errorf("Size() = %d, want 3", a.Size())
	}
}

func TestTransformBeforeFit(t *testing.T) {
	x := NewExtractor("us-east-1")
	if _, err := x.Transform([]*models.Event{makeEvent("u1", "GetObject", "s3", "us-east-1", 9)}); err != ErrNotFitted {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}

func TestTransformLayout(t *testing.T) {
	events := []*models.Event{
		makeEvent("u1", "GetObject", "s3", "us-east-1", 9),
		makeEvent("u1", "GetObject", "s3", "eu-west-1", 3),
		makeEvent("u2", "CreateUser", "iam", "us-east-1", 9),
	}
	events[2].ErrorCode = "AccessDenied"

	x := NewExtractor("us-east-1")
	x.Fit(events)

	vectors, err := x.Transform(events)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}
	for i, v := range vectors {
		if len(v) != Dim {
			t.Fatalf("vector %d has dim %d, want %d", i, len(v), Dim)
		}
	}

	// u1 appears twice, GetObject twice, s3 twice.
	if vectors[0][3] != 2 || vectors[0][4] != 2 || vectors[0][5] != 2 {
		t.Errorf("frequency features = %v/%v/%v, want 2/2/2", vectors[0][3], vectors[0][4], vectors[0][5])
	}
	if vectors[0][6] != 1 {
		t.Error("us-east-1 event should set is_usual_region")
	}
	if vectors[1][6] != 0 {
		t.Error("eu-west-1 event should clear is_usual_region")
	}
	if vectors[2][7] != 1 {
		t.Error("error-bearing event should set has_error")
	}
	if vectors[0][7] != 0 {
		t.Error("clean event should clear has_error")
	}
}

func TestTransformUnseenCategorySentinel(t *testing.T) {
	train := []*models.Event{makeEvent("u1", "GetObject", "s3", "us-east-1", 9)}
	x := NewExtractor("us-east-1")
	x.Fit(train)
	version := x.Version()

	unseen := []*models.Event{makeEvent("intruder", "DeleteTrail", "cloudtrail", "us-east-1", 2)}
	vectors, err := x.Transform(unseen)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if vectors[0][8] != SentinelBucket || vectors[0][9] != SentinelBucket || vectors[0][10] != SentinelBucket {
		t.Errorf("unseen categories must hit the sentinel bucket, got %v", vectors[0][8:])
	}
	if x.Version() != version {
		t.Error("Transform must not refit or bump the table version")
	}
}

func TestNoUsualRegionPolicy(t *testing.T) {
	events := []*models.Event{makeEvent("u1", "GetObject", "s3", "us-east-1", 9)}
	x := NewExtractor("")
	x.Fit(events)

	vectors, _ := x.Transform(events)
	if vectors[0][6] != 0 {
		t.Error("empty usual-region policy must disable the feature")
	}
}

func TestScalerStandardizes(t *testing.T) {
	vectors := []Vector{{2, 7}, {4, 7}, {6, 7}}
	s := FitScaler(vectors)

	out := s.Transform(vectors)

	// Feature 0: mean 4, population std sqrt(8/3).
	wantStd := math.Sqrt(8.0 / 3.0)
	if math.Abs(s.Mean[0]-4) > 1e-12 || math.Abs(s.Std[0]-wantStd) > 1e-12 {
		t.Fatalf("fit = mean %v std %v, want 4 %v", s.Mean[0], s.Std[0], wantStd)
	}
	if math.Abs(out[0][0]-(2-4)/wantStd) > 1e-12 {
		t.Errorf("scaled value = %v", out[0][0])
	}

	// Feature 1 has zero variance: identity transform, no NaN.
	for i, v := range out {
		if v[1] != 7 {
			t.Errorf("constant feature changed in vector %d: %v", i, v[1])
		}
		if math.IsNaN(v[0]) || math.IsNaN(v[1]) {
			t.Errorf("NaN leaked into scaled vector %d", i)
		}
	}

	// Inputs untouched.
	if vectors[0][0] != 2 {
		t.Error("Transform must not mutate its input")
	}
}
