// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"

	"github.com/raskell-io/cloudsentry/internal/models"
)

type fakeEngine struct {
	mu      sync.Mutex
	batches [][]*models.Event
	err     error
	ran     chan struct{}
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{ran: make(chan struct{}, 16)}
}

func (e *fakeEngine) Run(_ context.Context, events []*models.Event) (*models.ThreatReport, error) {
	e.mu.Lock()
	e.batches = append(e.batches, events)
	e.mu.Unlock()
	e.ran <- struct{}{}
	if e.err != nil {
		return nil, e.err
	}
	return models.NewThreatReport([]models.ThreatSignal{
		{Kind: models.KindKnownMaliciousIP, Severity: models.SeverityHigh, Confidence: 0.95},
	}, time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)), nil
}

func (e *fakeEngine) batchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.batches)
}

func eventPayload(t *testing.T, entity string) []byte {
	t.Helper()
	payload, err := json.Marshal(&models.Event{
		Timestamp:    time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC),
		EntityID:     entity,
		EventName:    "DescribeInstances",
		SourceIP:     "192.0.2.10",
		ResourceType: "ec2",
		Region:       "us-east-1",
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func TestHandlerFlushesOnBatchSize(t *testing.T) {
	logger := watermill.NewStdLogger(false, false)
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	defer pubsub.Close()

	reports, err := pubsub.Subscribe(context.Background(), "threats.reports")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	engine := newFakeEngine()
	h, err := NewDetectionHandler(engine, pubsub, HandlerConfig{
		BatchSize:     3,
		FlushInterval: time.Hour, // size is the only trigger here
		EventsTopic:   "events.normalized",
		ReportsTopic:  "threats.reports",
	}, logger)
	if err != nil {
		t.Fatalf("NewDetectionHandler: %v", err)
	}

	for _, entity := range []string{"u1", "u2", "u3"} {
		msg := message.NewMessage(watermill.NewUUID(), eventPayload(t, entity))
		if err := h.Handle(msg); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}

	select {
	case <-engine.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("engine never ran after batch filled")
	}
	if got := engine.batchCount(); got != 1 {
		t.Fatalf("engine ran %d times, want 1", got)
	}
	if got := len(engine.batches[0]); got != 3 {
		t.Errorf("batch size = %d, want 3", got)
	}

	select {
	case msg := <-reports:
		var report models.ThreatReport
		if err := json.Unmarshal(msg.Payload, &report); err != nil {
			t.Fatalf("report payload: %v", err)
		}
		if report.HighSeverityThreats != 1 {
			t.Errorf("published report = %+v", report)
		}
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("no report published")
	}
}

func TestHandlerAcksMalformedPayload(t *testing.T) {
	engine := newFakeEngine()
	h, err := NewDetectionHandler(engine, nil, HandlerConfig{BatchSize: 1}, nil)
	if err != nil {
		t.Fatalf("NewDetectionHandler: %v", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), []byte("{not json"))
	if err := h.Handle(msg); err != nil {
		t.Fatalf("malformed payload must be acked, got %v", err)
	}
	if engine.batchCount() != 0 {
		t.Error("engine must not run on malformed input")
	}
	if stats := h.Stats(); stats.ParseErrors != 1 {
		t.Errorf("ParseErrors = %d, want 1", stats.ParseErrors)
	}
}

func TestHandlerFlushesOnInterval(t *testing.T) {
	engine := newFakeEngine()
	h, err := NewDetectionHandler(engine, nil, HandlerConfig{
		BatchSize:     1000,
		FlushInterval: 20 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewDetectionHandler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)

	if err := h.Handle(message.NewMessage(watermill.NewUUID(), eventPayload(t, "u1"))); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	select {
	case <-engine.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("interval flush never ran the engine")
	}
}

func TestHandlerToleratesPassFailure(t *testing.T) {
	engine := newFakeEngine()
	engine.err = errors.New("model not trained")
	h, err := NewDetectionHandler(engine, nil, HandlerConfig{BatchSize: 1, FlushInterval: time.Hour}, nil)
	if err != nil {
		t.Fatalf("NewDetectionHandler: %v", err)
	}

	if err := h.Handle(message.NewMessage(watermill.NewUUID(), eventPayload(t, "u1"))); err != nil {
		t.Fatalf("pass failure must not propagate to the transport: %v", err)
	}
	if stats := h.Stats(); stats.PassErrors != 1 || stats.PassesRun != 0 {
		t.Errorf("stats = %+v, want one failed pass", stats)
	}
}

func TestHandlerRequiresEngine(t *testing.T) {
	if _, err := NewDetectionHandler(nil, nil, HandlerConfig{}, nil); !errors.Is(err, ErrNilEngine) {
		t.Fatalf("err = %v, want ErrNilEngine", err)
	}
}
