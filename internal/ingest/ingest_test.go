// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package ingest

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalizeCloudTrail(t *testing.T) {
	at := time.Date(2026, 3, 14, 22, 30, 0, 0, time.UTC) // Saturday
	records := []CloudTrailRecord{
		{
			EventTime:       at,
			EventName:       "CreateUser",
			Username:        "admin",
			SourceIPAddress: "198.51.100.7",
			UserAgent:       "aws-cli/2.15",
			Resources:       []CloudTrailResource{{ResourceType: "AWS::IAM::User", ResourceName: "new-user"}},
			AWSRegion:       "us-east-1",
			ErrorCode:       "AccessDenied",
		},
		{
			EventTime: at,
			EventName: "ListBuckets",
			// Sparse record: no identity, IP, resources or region.
		},
	}

	events := NormalizeCloudTrail(records)
	if len(events) != 2 {
		t.Fatalf("normalized %d events, want 2", len(events))
	}

	full := events[0]
	if full.EntityID != "admin" || full.SourceIP != "198.51.100.7" {
		t.Errorf("identity mapping wrong: %+v", full)
	}
	if full.ResourceType != "AWS::IAM::User" {
		t.Errorf("resource type = %q", full.ResourceType)
	}
	if !full.HasError() {
		t.Error("error code lost in normalization")
	}
	if full.Hour != 22 || full.DayOfWeek != 5 || !full.IsWeekend {
		t.Errorf("time features = hour %d dow %d weekend %v, want 22/5/true",
			full.Hour, full.DayOfWeek, full.IsWeekend)
	}
	if err := full.Validate(); err != nil {
		t.Errorf("normalized event invalid: %v", err)
	}

	sparse := events[1]
	for field, got := range map[string]string{
		"entity":   sparse.EntityID,
		"ip":       sparse.SourceIP,
		"resource": sparse.ResourceType,
		"region":   sparse.Region,
	} {
		if got != unknownValue {
			t.Errorf("sparse record %s = %q, want unknown sentinel", field, got)
		}
	}
	if err := sparse.Validate(); err != nil {
		t.Errorf("sparse record must still normalize to a valid event: %v", err)
	}
}

func TestDecodeCloudTrailRecords(t *testing.T) {
	data := []byte(`[{"EventTime":"2026-03-14T22:30:00Z","EventName":"CreateUser","Username":"admin","SourceIPAddress":"198.51.100.7","AWSRegion":"us-east-1"}]`)
	records, err := DecodeCloudTrailRecords(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].EventName != "CreateUser" {
		t.Fatalf("records = %+v", records)
	}

	if _, err := DecodeCloudTrailRecords([]byte("{not json")); err == nil {
		t.Error("malformed input must fail to decode")
	}
}

func TestNormalizeAzureActivity(t *testing.T) {
	at := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC) // Monday
	entries := []AzureActivityEntry{
		{
			EventTimestamp: at,
			OperationName:  "Microsoft.Compute/virtualMachines/write",
			Caller:         "ops@example.com",
			ResourceType:   "virtualMachines",
			ResourceGroup:  "prod-rg",
			Status:         "Failed",
		},
		{
			EventTimestamp: at,
			OperationName:  "Microsoft.Storage/storageAccounts/read",
			Caller:         "ops@example.com",
			ResourceType:   "storageAccounts",
			ResourceGroup:  "prod-rg",
			Status:         "Succeeded",
		},
	}

	events := NormalizeAzureActivity(entries)
	if len(events) != 2 {
		t.Fatalf("normalized %d events, want 2", len(events))
	}
	if events[0].SourceIP != unknownValue {
		t.Errorf("azure source ip = %q, want unknown sentinel", events[0].SourceIP)
	}
	if events[0].Region != "prod-rg" {
		t.Errorf("region = %q, want resource group stand-in", events[0].Region)
	}
	if !events[0].HasError() {
		t.Error("Failed status must map to the error-code feature")
	}
	if events[1].HasError() {
		t.Error("Succeeded status must not map to an error code")
	}
	if events[0].Hour != 9 || events[0].DayOfWeek != 0 || events[0].IsWeekend {
		t.Errorf("time features = %d/%d/%v, want 9/0/false",
			events[0].Hour, events[0].DayOfWeek, events[0].IsWeekend)
	}
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			t.Errorf("event %d invalid after normalization: %v", i, err)
		}
	}
}

func TestSampleGeneratorDeterminism(t *testing.T) {
	base := time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)

	first := NewSampleGenerator(42).Generate(200, base)
	second := NewSampleGenerator(42).Generate(200, base)
	if !reflect.DeepEqual(first, second) {
		t.Error("same seed and base must produce identical batches")
	}

	other := NewSampleGenerator(43).Generate(200, base)
	if reflect.DeepEqual(first, other) {
		t.Error("different seeds must produce different batches")
	}
}

func TestSampleGeneratorPlantsAnomalies(t *testing.T) {
	base := time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)
	events := NewSampleGenerator(42).Generate(150, base)

	planted := 0
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			t.Fatalf("event %d invalid: %v", i, err)
		}
		if ev.EntityID == "suspicious_user" {
			planted++
			if ev.SourceIP != "192.168.1.100" || ev.EventName != "CreateUser" {
				t.Errorf("planted event %d = %+v", i, ev)
			}
		}
	}
	if planted != 3 {
		t.Errorf("planted %d anomalies in 150 events, want 3", planted)
	}
}
