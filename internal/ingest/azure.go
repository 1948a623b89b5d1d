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

// AzureActivityEntry mirrors the fields of an Azure Activity Log entry
// that the engine consumes. Activity logs carry no source IP; the
// normalized event uses the unknown sentinel.
type AzureActivityEntry struct {
	EventTimestamp time.Time `json:"eventTimestamp"`
	OperationName  string    `json:"operationName"`
	Caller         string    `json:"caller"`
	ResourceType   string    `json:"resourceType"`
	ResourceGroup  string    `json:"resourceGroupName"`
	Status         string    `json:"status"`
	SubscriptionID string    `json:"subscriptionId"`
}

// DecodeAzureActivityEntries parses a JSON array of activity log entries.
func DecodeAzureActivityEntries(data []byte) ([]AzureActivityEntry, error) {
	var entries []AzureActivityEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding azure activity entries: %w", err)
	}
	return entries, nil
}

// NormalizeAzureActivity converts activity log entries into normalized
// events with derived time features. The resource group stands in for a
// region since activity logs carry no region field; a failed status maps
// to the error-code feature.
func NormalizeAzureActivity(entries []AzureActivityEntry) []*models.Event {
	events := make([]*models.Event, 0, len(entries))
	for _, entry := range entries {
		ev := models.Event{
			Timestamp:    entry.EventTimestamp,
			EntityID:     orUnknown(entry.Caller),
			EventName:    orUnknown(entry.OperationName),
			SourceIP:     unknownValue,
			ResourceType: orUnknown(entry.ResourceType),
			Region:       orUnknown(entry.ResourceGroup),
			ErrorCode:    azureErrorCode(entry.Status),
		}
		derived := ev.DeriveTimeFeatures()
		events = append(events, &derived)
	}
	return events
}

func azureErrorCode(status string) string {
	if status == "Failed" {
		return status
	}
	return ""
}
