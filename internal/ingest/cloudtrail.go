// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package ingest

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/raskell-io/cloudsentry/internal/models"
)

// unknownValue fills required fields the provider record did not carry,
// so a sparse record still normalizes instead of being dropped wholesale.
const unknownValue = "Unknown"

// CloudTrailResource is one resource reference inside a CloudTrail event.
type CloudTrailResource struct {
	ResourceType string `json:"ResourceType"`
	ResourceName string `json:"ResourceName"`
}

// CloudTrailRecord mirrors the fields of an AWS CloudTrail LookupEvents
// record that the engine consumes.
type CloudTrailRecord struct {
	EventTime       time.Time            `json:"EventTime"`
	EventName       string               `json:"EventName"`
	Username        string               `json:"Username"`
	SourceIPAddress string               `json:"SourceIPAddress"`
	UserAgent       string               `json:"UserAgent"`
	Resources       []CloudTrailResource `json:"Resources"`
	AWSRegion       string               `json:"AWSRegion"`
	ErrorCode       string               `json:"ErrorCode"`
}

// DecodeCloudTrailRecords parses a JSON array of CloudTrail records.
func DecodeCloudTrailRecords(data []byte) ([]CloudTrailRecord, error) {
	var records []CloudTrailRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding cloudtrail records: %w", err)
	}
	return records, nil
}

// NormalizeCloudTrail converts CloudTrail records into normalized events
// with derived time features. Missing identities normalize to the unknown
// sentinel rather than dropping the record.
func NormalizeCloudTrail(records []CloudTrailRecord) []*models.Event {
	events := make([]*models.Event, 0, len(records))
	for _, rec := range records {
		ev := models.Event{
			Timestamp:    rec.EventTime,
			EntityID:     orUnknown(rec.Username),
			EventName:    rec.EventName,
			SourceIP:     orUnknown(rec.SourceIPAddress),
			UserAgent:    rec.UserAgent,
			ResourceType: firstResourceType(rec.Resources),
			Region:       orUnknown(rec.AWSRegion),
			ErrorCode:    rec.ErrorCode,
		}
		derived := ev.DeriveTimeFeatures()
		events = append(events, &derived)
	}
	return events
}

func firstResourceType(resources []CloudTrailResource) string {
	for _, r := range resources {
		if r.ResourceType != "" {
			return r.ResourceType
		}
	}
	return unknownValue
}

func orUnknown(s string) string {
	if s == "" {
		return unknownValue
	}
	return s
}
