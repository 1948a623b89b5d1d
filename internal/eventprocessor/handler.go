// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package eventprocessor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"

	"github.com/raskell-io/cloudsentry/internal/metrics"
	"github.com/raskell-io/cloudsentry/internal/models"
)

// DetectionEngine is the surface of the detection pipeline the handler
// needs; the narrow interface keeps transport tests free of model state.
type DetectionEngine interface {
	Run(ctx context.Context, events []*models.Event) (*models.ThreatReport, error)
}

// DetectionHandler consumes normalized security events and feeds them to
// the detection engine in batches. A batch flushes when it reaches
// BatchSize or when FlushInterval elapses, whichever comes first.
//
// Detection is fire-and-forget with respect to the transport: a failed
// pass is logged and never blocks event consumption. Malformed payloads
// are acked after logging; redelivery cannot fix them.
type DetectionHandler struct {
	engine    DetectionEngine
	publisher message.Publisher
	cfg       HandlerConfig
	logger    watermill.LoggerAdapter

	mu    sync.Mutex
	batch []*models.Event

	messagesReceived atomic.Int64
	parseErrors      atomic.Int64
	passesRun        atomic.Int64
	passErrors       atomic.Int64
}

// NewDetectionHandler creates a batching handler. publisher may be nil,
// which disables report publication.
func NewDetectionHandler(engine DetectionEngine, publisher message.Publisher, cfg HandlerConfig, logger watermill.LoggerAdapter) (*DetectionHandler, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	return &DetectionHandler{
		engine:    engine,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		batch:     make([]*models.Event, 0, cfg.BatchSize),
	}, nil
}

// Handle is the router handler: it parses one event and appends it to
// the current batch, flushing when the batch is full.
func (h *DetectionHandler) Handle(msg *message.Message) error {
	h.messagesReceived.Add(1)

	var ev models.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		h.parseErrors.Add(1)
		metrics.MessagesConsumed.WithLabelValues(h.cfg.EventsTopic, "invalid").Inc()
		h.logger.Error("failed to parse event payload", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		// Ack: redelivering a malformed payload cannot help.
		return nil
	}
	metrics.MessagesConsumed.WithLabelValues(h.cfg.EventsTopic, "ok").Inc()

	h.mu.Lock()
	h.batch = append(h.batch, &ev)
	full := len(h.batch) >= h.cfg.BatchSize
	h.mu.Unlock()

	if full {
		h.flush(msg.Context(), "size")
	}
	return nil
}

// Start runs the interval flusher until the context is canceled, then
// flushes whatever is pending.
func (h *DetectionHandler) Start(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.flush(ctx, "interval")
		case <-ctx.Done():
			h.flush(context.Background(), "shutdown")
			return
		}
	}
}

// flush runs one detection pass over the accumulated batch and publishes
// the resulting report. An empty batch is a no-op.
func (h *DetectionHandler) flush(ctx context.Context, trigger string) {
	h.mu.Lock()
	if len(h.batch) == 0 {
		h.mu.Unlock()
		return
	}
	batch := h.batch
	h.batch = make([]*models.Event, 0, h.cfg.BatchSize)
	h.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	metrics.BatchFlushes.WithLabelValues(trigger).Inc()

	report, err := h.engine.Run(ctx, batch)
	if err != nil {
		h.passErrors.Add(1)
		h.logger.Error("detection pass failed", err, watermill.LogFields{
			"events":  len(batch),
			"trigger": trigger,
		})
		return
	}
	h.passesRun.Add(1)

	if h.publisher == nil || h.cfg.ReportsTopic == "" {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		h.logger.Error("failed to encode threat report", err, nil)
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := h.publisher.Publish(h.cfg.ReportsTopic, msg); err != nil {
		h.logger.Error("failed to publish threat report", err, watermill.LogFields{
			"topic": h.cfg.ReportsTopic,
		})
	}
}

// Stats returns runtime counters for health reporting.
func (h *DetectionHandler) Stats() DetectionHandlerStats {
	h.mu.Lock()
	pending := len(h.batch)
	h.mu.Unlock()

	return DetectionHandlerStats{
		MessagesReceived: h.messagesReceived.Load(),
		ParseErrors:      h.parseErrors.Load(),
		PassesRun:        h.passesRun.Load(),
		PassErrors:       h.passErrors.Load(),
		PendingEvents:    pending,
	}
}

// DetectionHandlerStats holds handler runtime counters.
type DetectionHandlerStats struct {
	MessagesReceived int64
	ParseErrors      int64
	PassesRun        int64
	PassErrors       int64
	PendingEvents    int
}
