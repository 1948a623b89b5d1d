// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/raskell-io/cloudsentry/internal/logging"
	"github.com/raskell-io/cloudsentry/internal/metrics"
	"github.com/raskell-io/cloudsentry/internal/models"
)

// ErrBelowMinSeverity indicates the report carried nothing at or above
// the configured severity floor and was dropped without delivery.
var ErrBelowMinSeverity = errors.New("notify: report below minimum severity")

// Config configures the webhook notifier.
type Config struct {
	URL     string
	Headers map[string]string

	// MinSeverity is the severity floor; a report is delivered only when
	// it carries at least one signal at or above it.
	MinSeverity models.Severity

	// RateLimit is the minimum interval between deliveries. Reports
	// arriving faster are dropped, not queued.
	RateLimit time.Duration

	Timeout time.Duration
}

// Notifier delivers threat reports to an HTTP webhook. Delivery runs
// behind a circuit breaker: after consecutive failures the endpoint is
// given time to recover instead of being hammered.
type Notifier struct {
	cfg     Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]

	// mu serializes deliveries; the batch flusher and the router handler
	// can both push reports concurrently.
	mu       sync.Mutex
	lastSent time.Time
	now      func() time.Time
}

// NewNotifier creates a webhook notifier.
func NewNotifier(cfg Config) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        "webhook",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("webhook circuit breaker state change")
		},
	}
	return &Notifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		now:     time.Now,
	}
}

// Notify delivers the report when it clears the severity floor and the
// rate limit. Dropped reports return ErrBelowMinSeverity or nil (rate
// limited); transport failures and open-breaker rejections return the
// underlying error.
func (n *Notifier) Notify(ctx context.Context, report *models.ThreatReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.clearsSeverityFloor(report) {
		metrics.WebhookDeliveries.WithLabelValues("dropped").Inc()
		return ErrBelowMinSeverity
	}

	if n.cfg.RateLimit > 0 {
		if since := n.now().Sub(n.lastSent); !n.lastSent.IsZero() && since < n.cfg.RateLimit {
			metrics.WebhookDeliveries.WithLabelValues("dropped").Inc()
			logging.Debug().
				Dur("since_last", since).
				Msg("webhook delivery rate limited, dropping report")
			return nil
		}
	}

	_, err := n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.deliver(ctx, report)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.WebhookDeliveries.WithLabelValues("breaker_open").Inc()
		return err
	case err != nil:
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		return err
	}

	n.lastSent = n.now()
	metrics.WebhookDeliveries.WithLabelValues("ok").Inc()
	return nil
}

func (n *Notifier) clearsSeverityFloor(report *models.ThreatReport) bool {
	floor := n.cfg.MinSeverity.Rank()
	for i := range report.Threats {
		if report.Threats[i].Severity.Rank() >= floor {
			return true
		}
	}
	return false
}

func (n *Notifier) deliver(ctx context.Context, report *models.ThreatReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range n.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
