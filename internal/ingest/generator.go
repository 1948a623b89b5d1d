// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package ingest

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/raskell-io/cloudsentry/internal/models"
)

// anomalyInterval plants one suspicious event every N generated events so
// demo batches always contain something for the detectors to find.
const anomalyInterval = 50

var (
	sampleEventNames = []string{
		"DescribeInstances", "RunInstances", "TerminateInstances", "CreateUser",
		"DeleteUser", "CreateAccessKey", "AttachUserPolicy", "DetachUserPolicy",
		"GetObject", "PutObject", "ListBuckets", "CreateTrail", "StopLogging",
	}
	sampleEntities  = []string{"admin", "developer", "analyst", "automation", "unknown_user"}
	sampleResources = []string{"ec2", "s3", "iam", "cloudtrail"}
)

// SampleGenerator produces synthetic security events for demos and
// smoke tests. The same seed and base time yield the same batch.
type SampleGenerator struct {
	rng *rand.Rand
}

// NewSampleGenerator creates a generator with a deterministic source.
func NewSampleGenerator(seed int64) *SampleGenerator {
	return &SampleGenerator{rng: rand.New(rand.NewSource(seed))}
}

// Generate produces n events spread over the 24 hours preceding base.
// Every anomalyInterval-th event is planted: a suspicious entity hitting a
// critical operation from a known-bad address.
func (g *SampleGenerator) Generate(n int, base time.Time) []*models.Event {
	events := make([]*models.Event, n)
	for i := range events {
		ev := models.Event{
			Timestamp:    base.Add(-time.Duration(g.rng.Intn(24)) * time.Hour),
			EntityID:     sampleEntities[g.rng.Intn(len(sampleEntities))],
			EventName:    sampleEventNames[g.rng.Intn(len(sampleEventNames))],
			SourceIP:     fmt.Sprintf("192.168.1.%d", 1+g.rng.Intn(99)),
			UserAgent:    "Mozilla/5.0",
			ResourceType: sampleResources[g.rng.Intn(len(sampleResources))],
			Region:       "us-east-1",
		}
		if g.rng.Float64() <= 0.1 {
			ev.UserAgent = "nmap"
		}
		if g.rng.Float64() <= 0.05 {
			ev.ErrorCode = "AccessDenied"
		}
		if i%anomalyInterval == 0 {
			ev.EntityID = "suspicious_user"
			ev.SourceIP = "192.168.1.100"
			ev.EventName = "CreateUser"
		}
		derived := ev.DeriveTimeFeatures()
		events[i] = &derived
	}
	return events
}
