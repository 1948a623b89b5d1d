// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package api

import (
	"bytes"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/raskell-io/cloudsentry/internal/correlation"
	"github.com/raskell-io/cloudsentry/internal/features"
	"github.com/raskell-io/cloudsentry/internal/models"
	"github.com/raskell-io/cloudsentry/internal/pipeline"
	"github.com/raskell-io/cloudsentry/internal/profile"
)

func newTestServer(t *testing.T, train bool) (*httptest.Server, *pipeline.Pipeline) {
	t.Helper()

	engine := pipeline.New(pipeline.Config{
		EnsembleSize:        50,
		SubsampleSize:       128,
		SubsampleCap:        256,
		Seed:                42,
		ConfidenceThreshold: 0.85,
		AnomalySeverity:     models.SeverityMedium,
		HistoryCapacity:     100,
	},
		features.NewExtractor("us-east-1"),
		profile.NewStore(profile.DefaultConfig()),
		correlation.NewCorrelator(correlation.DefaultConfig()),
	)

	if train {
		if _, err := engine.Train(sampleBatch(200)); err != nil {
			t.Fatalf("Train: %v", err)
		}
	}

	srv := httptest.NewServer(NewRouter(NewHandler(engine, 1000), RouterConfig{}))
	t.Cleanup(srv.Close)
	return srv, engine
}

func sampleBatch(n int) []*models.Event {
	rng := rand.New(rand.NewSource(11))
	entities := []string{"u1", "u2", "u3"}
	names := []string{"DescribeInstances", "ListBuckets", "GetMetricData"}
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	events := make([]*models.Event, n)
	for i := range events {
		events[i] = &models.Event{
			Timestamp:    base.AddDate(0, 0, i%5).Add(time.Duration(9+rng.Intn(6)) * time.Hour),
			EntityID:     entities[rng.Intn(len(entities))],
			EventName:    names[rng.Intn(len(names))],
			SourceIP:     fmt.Sprintf("192.0.2.%d", 10+rng.Intn(20)),
			ResourceType: "ec2",
			Region:       "us-east-1",
		}
	}
	return events
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if into != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, false)

	var health map[string]any
	if status := getJSON(t, srv.URL+"/healthz", &health); status != http.StatusOK {
		t.Fatalf("healthz status = %d", status)
	}
	if health["status"] != "ok" {
		t.Errorf("health = %v", health)
	}
	if trained, _ := health["trained"].(bool); trained {
		t.Error("trained = true before any Train call")
	}
}

func TestLatestReportLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, true)

	// No pass has run yet.
	if status := getJSON(t, srv.URL+"/api/v1/report/latest", nil); status != http.StatusNotFound {
		t.Fatalf("latest before any pass = %d, want 404", status)
	}

	resp := postJSON(t, srv.URL+"/api/v1/detect", sampleBatch(20))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("detect status = %d", resp.StatusCode)
	}
	var report models.ThreatReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}

	var latest models.ThreatReport
	if status := getJSON(t, srv.URL+"/api/v1/report/latest", &latest); status != http.StatusOK {
		t.Fatalf("latest after pass = %d", status)
	}
	if latest.ThreatsDetected != report.ThreatsDetected {
		t.Errorf("latest = %+v, detect returned %+v", latest, report)
	}

	// Rendered form.
	textResp, err := http.Get(srv.URL + "/api/v1/report/latest?format=text")
	if err != nil {
		t.Fatalf("GET rendered: %v", err)
	}
	defer textResp.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(textResp.Body); err != nil {
		t.Fatalf("read rendered: %v", err)
	}
	if !strings.Contains(buf.String(), "CLOUD THREAT INTELLIGENCE REPORT") {
		t.Errorf("rendered report missing header:\n%s", buf.String())
	}
}

func TestDetectUntrained(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp := postJSON(t, srv.URL+"/api/v1/detect", sampleBatch(5))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("detect on untrained engine = %d, want 409", resp.StatusCode)
	}
}

func TestDetectBadRequests(t *testing.T) {
	srv, _ := newTestServer(t, true)

	t.Run("not an array", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/v1/detect", "application/json", strings.NewReader("{}"))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("empty array", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/detect", []*models.Event{})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("oversized batch", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/detect", sampleBatch(1001))
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", resp.StatusCode)
		}
	})

	t.Run("all events invalid", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/detect", []*models.Event{{EventName: "x"}})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestTrainEndpoint(t *testing.T) {
	srv, engine := newTestServer(t, false)

	resp := postJSON(t, srv.URL+"/api/v1/train", sampleBatch(200))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("train status = %d", resp.StatusCode)
	}
	if !engine.Trained() {
		t.Error("engine untrained after POST /train")
	}

	var summary map[string]any
	if status := getJSON(t, srv.URL+"/api/v1/train/summary", &summary); status != http.StatusOK {
		t.Fatalf("train summary status = %d", status)
	}
	if summary["samples"] != float64(200) {
		t.Errorf("summary = %v", summary)
	}
}

func TestProfileEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, true)

	var snapshot profile.Snapshot
	if status := getJSON(t, srv.URL+"/api/v1/profiles/u1", &snapshot); status != http.StatusOK {
		t.Fatalf("profile status = %d", status)
	}
	if snapshot.EntityID != "u1" || snapshot.TotalEvents == 0 {
		t.Errorf("snapshot = %+v", snapshot)
	}

	if status := getJSON(t, srv.URL+"/api/v1/profiles/nobody", nil); status != http.StatusNotFound {
		t.Errorf("unknown profile status = %d, want 404", status)
	}
}

func TestReportsAndMonitorMetrics(t *testing.T) {
	srv, _ := newTestServer(t, true)

	for i := 0; i < 3; i++ {
		resp := postJSON(t, srv.URL+"/api/v1/detect", sampleBatch(10))
		resp.Body.Close()
	}

	var reports []*models.ThreatReport
	if status := getJSON(t, srv.URL+"/api/v1/reports?limit=2", &reports); status != http.StatusOK {
		t.Fatalf("reports status = %d", status)
	}
	if len(reports) != 2 {
		t.Errorf("got %d reports, want 2", len(reports))
	}

	var mon pipeline.MonitorMetrics
	if status := getJSON(t, srv.URL+"/api/v1/reports/metrics", &mon); status != http.StatusOK {
		t.Fatalf("monitor metrics status = %d", status)
	}
	if mon.Passes != 3 {
		t.Errorf("passes = %d, want 3", mon.Passes)
	}

	if status := getJSON(t, srv.URL+"/api/v1/reports?limit=-1", nil); status != http.StatusBadRequest {
		t.Errorf("negative limit status = %d, want 400", status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, false)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
}
